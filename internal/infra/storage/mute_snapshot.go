package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// muteEntry es el formato en disco: guild -> member -> muteEntry.
type muteEntry struct {
	ExpiresAt         json.RawMessage `json:"expires_at"`
	RestrictionRoleID string          `json:"restriction_role_id"`
	Reason            string          `json:"reason,omitempty"`
	LogChannelID      string          `json:"log_channel_id,omitempty"`
}

// EncodeMutes serializa con expires_at en ISO-8601 UTC, con fracción de
// segundo si la hay.
func EncodeMutes(mutes []domain.MuteRecord) ([]byte, error) {
	doc := map[string]map[string]muteEntry{}
	for _, m := range mutes {
		ts, err := json.Marshal(m.ExpiresAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return nil, err
		}
		g, ok := doc[m.GuildID]
		if !ok {
			g = map[string]muteEntry{}
			doc[m.GuildID] = g
		}
		g[m.MemberID] = muteEntry{
			ExpiresAt:         ts,
			RestrictionRoleID: m.RestrictionRoleID,
			Reason:            m.Reason,
			LogChannelID:      m.LogChannelID,
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeMutes es tolerante: entradas con claves no numéricas, sin expires_at o
// sin rol se saltan en vez de abortar. Devuelve también cuántas se saltaron.
func DecodeMutes(data []byte) ([]domain.MuteRecord, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, fmt.Errorf("decode mutes: %w", err)
	}

	var out []domain.MuteRecord
	skipped := 0
	for guildID, raw := range doc {
		var members map[string]json.RawMessage
		if !domain.IsSnowflake(guildID) || json.Unmarshal(raw, &members) != nil {
			skipped++
			continue
		}
		for memberID, rawEntry := range members {
			var e muteEntry
			if err := json.Unmarshal(rawEntry, &e); err != nil {
				skipped++
				continue
			}
			exp, ok := parseExpiry(e.ExpiresAt)
			rec := domain.MuteRecord{
				GuildID:           guildID,
				MemberID:          memberID,
				ExpiresAt:         exp,
				RestrictionRoleID: e.RestrictionRoleID,
				Reason:            e.Reason,
				LogChannelID:      e.LogChannelID,
			}
			if !ok || !validMute(rec) {
				skipped++
				continue
			}
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, skipped, nil
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999", // isoformat() sin zona, se asume UTC
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseExpiry acepta ISO-8601 (string) o epoch en segundos (número o string numérico).
func parseExpiry(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return epoch(f)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return epoch(f)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func epoch(f float64) (time.Time, bool) {
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
