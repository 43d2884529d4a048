package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/infra/metrics"
)

// MuteRequest es lo que llega desde /mute.
type MuteRequest struct {
	GuildID           string
	MemberID          string
	Duration          string // "600", "90s", "10m", "2h", "1d"
	RestrictionRoleID string
	Reason            string
	LogChannelID      string
}

var durationUnits = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// ParseMuteDuration acepta un entero positivo de segundos, opcionalmente con
// sufijo de unidad. Cualquier otra cosa es ErrInvalidDuration.
func ParseMuteDuration(raw string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	unit := time.Second
	if n := len(s); n > 0 {
		if u, ok := durationUnits[s[n-1]]; ok {
			unit = u
			s = s[:n-1]
		}
	}
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, raw)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidDuration, raw)
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: %q is too long", domain.ErrInvalidDuration, raw)
	}
	return time.Duration(n) * unit, nil
}

// MuteRegistry lleva la contabilidad temporal de los mutes activos.
// Toda mutación se persiste antes de darse por confirmada en memoria.
// El mutex es la sección crítica por clave: Evaluate y Cancel nunca emiten
// dos reversiones para el mismo mute.
type MuteRegistry struct {
	mu      sync.Mutex
	records map[domain.MemberKey]domain.MuteRecord
	dirty   bool // la última escritura de Evaluate falló

	store MuteStore
	clock Clock
	log   *slog.Logger
}

func NewMuteRegistry(store MuteStore, clock Clock, log *slog.Logger) *MuteRegistry {
	return &MuteRegistry{
		records: map[domain.MemberKey]domain.MuteRecord{},
		store:   store,
		clock:   clock,
		log:     log.With("component", "mute-registry"),
	}
}

// Load reemplaza el estado en memoria con lo persistido.
func (r *MuteRegistry) Load(ctx context.Context) error {
	mutes, err := r.store.LoadMutes(ctx)
	if err != nil {
		return fmt.Errorf("load mutes: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[domain.MemberKey]domain.MuteRecord, len(mutes))
	for _, m := range mutes {
		r.records[m.Key()] = m
	}
	r.dirty = false
	metrics.ActiveMutes.Set(float64(len(r.records)))
	r.log.Info("mutes restored", "count", len(r.records))
	return nil
}

// Register crea (o pisa) el mute de un miembro. El más nuevo gana, no se acumulan.
func (r *MuteRegistry) Register(ctx context.Context, req MuteRequest) (domain.MuteRecord, error) {
	rec, _, err := r.Replace(ctx, req)
	return rec, err
}

// Replace es Register pero devuelve también el mute que se pisó (nil si no
// había), leído bajo el mismo lock que la escritura.
func (r *MuteRegistry) Replace(ctx context.Context, req MuteRequest) (domain.MuteRecord, *domain.MuteRecord, error) {
	d, err := ParseMuteDuration(req.Duration)
	if err != nil {
		return domain.MuteRecord{}, nil, err
	}
	if req.RestrictionRoleID == "" {
		return domain.MuteRecord{}, nil, fmt.Errorf("%w: restriction role is required", domain.ErrInvalidArgument)
	}
	// al recargar se descartan IDs que no son snowflakes; no se aceptan acá tampoco
	if !domain.IsSnowflake(req.GuildID) || !domain.IsSnowflake(req.MemberID) {
		return domain.MuteRecord{}, nil, fmt.Errorf("%w: guild %q / member %q", domain.ErrInvalidArgument, req.GuildID, req.MemberID)
	}

	rec := domain.MuteRecord{
		GuildID:           req.GuildID,
		MemberID:          req.MemberID,
		ExpiresAt:         r.clock.Now().Add(d),
		RestrictionRoleID: req.RestrictionRoleID,
		Reason:            req.Reason,
		LogChannelID:      req.LogChannelID,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var prev *domain.MuteRecord
	if old, ok := r.records[rec.Key()]; ok {
		prev = &old
	}
	next := r.cloneLocked()
	next[rec.Key()] = rec
	if err := r.commitLocked(ctx, next); err != nil {
		return domain.MuteRecord{}, nil, err
	}
	return rec, prev, nil
}

// Evaluate saca los mutes vencidos y devuelve sus reversiones. El registro se
// borra aunque la acción falle después en la plataforma.
func (r *MuteRegistry) Evaluate(ctx context.Context, now time.Time) []domain.ActionRequest {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []domain.MuteRecord
	for _, m := range r.records {
		if !m.ExpiresAt.After(now) {
			expired = append(expired, m)
		}
	}
	if len(expired) == 0 && !r.dirty {
		return nil
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })

	next := r.cloneLocked()
	for _, m := range expired {
		delete(next, m.Key())
	}
	if err := r.commitLocked(ctx, next); err != nil {
		// igual se confirma en memoria: reemitir reversiones sería peor.
		// El próximo Evaluate reintenta la escritura.
		r.records = next
		r.dirty = true
		metrics.ActiveMutes.Set(float64(len(r.records)))
		r.log.Error("persist after expiry failed, will retry", "err", err)
	}

	var actions []domain.ActionRequest
	for _, m := range expired {
		actions = append(actions, reversalActions(m, "Restricción temporal finalizada")...)
	}
	return actions
}

// Cancel libera un mute antes de tiempo.
func (r *MuteRegistry) Cancel(ctx context.Context, guildID, memberID string) ([]domain.ActionRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := domain.MemberKey{GuildID: guildID, MemberID: memberID}
	m, ok := r.records[k]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := r.cloneLocked()
	delete(next, k)
	if err := r.commitLocked(ctx, next); err != nil {
		return nil, err
	}
	return reversalActions(m, "Restricción levantada manualmente"), nil
}

// Rollback deshace un Replace cuyo rol no se pudo aplicar: vuelve a prev, o
// borra la clave si prev es nil. Sólo actúa si el registro vigente sigue siendo
// rec; si otro /mute lo pisó entretanto, ese gana y devuelve false.
func (r *MuteRegistry) Rollback(ctx context.Context, rec domain.MuteRecord, prev *domain.MuteRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := rec.Key()
	cur, ok := r.records[k]
	if !ok || !sameMute(cur, rec) {
		return false, nil
	}
	next := r.cloneLocked()
	if prev != nil {
		next[k] = *prev
	} else {
		delete(next, k)
	}
	if err := r.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MuteRegistry) Get(guildID, memberID string) (domain.MuteRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.records[domain.MemberKey{GuildID: guildID, MemberID: memberID}]
	return m, ok
}

// Snapshot es una copia consistente, ordenada por vencimiento.
func (r *MuteRegistry) Snapshot() []domain.MuteRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedMutes(r.records)
}

func (r *MuteRegistry) cloneLocked() map[domain.MemberKey]domain.MuteRecord {
	next := make(map[domain.MemberKey]domain.MuteRecord, len(r.records)+1)
	for k, v := range r.records {
		next[k] = v
	}
	return next
}

// commitLocked persiste next y recién entonces lo instala.
func (r *MuteRegistry) commitLocked(ctx context.Context, next map[domain.MemberKey]domain.MuteRecord) error {
	if err := r.store.SaveMutes(ctx, sortedMutes(next)); err != nil {
		metrics.StoreWriteFailures.WithLabelValues("mutes").Inc()
		return fmt.Errorf("persist mutes: %w", err)
	}
	r.records = next
	r.dirty = false
	metrics.ActiveMutes.Set(float64(len(r.records)))
	return nil
}

func sortedMutes(m map[domain.MemberKey]domain.MuteRecord) []domain.MuteRecord {
	out := make([]domain.MuteRecord, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].Key().String() < out[j].Key().String()
	})
	return out
}

func sameMute(a, b domain.MuteRecord) bool {
	return a.GuildID == b.GuildID &&
		a.MemberID == b.MemberID &&
		a.ExpiresAt.Equal(b.ExpiresAt) &&
		a.RestrictionRoleID == b.RestrictionRoleID &&
		a.Reason == b.Reason &&
		a.LogChannelID == b.LogChannelID
}

func reversalActions(m domain.MuteRecord, why string) []domain.ActionRequest {
	return []domain.ActionRequest{
		{
			Kind:     domain.ActionRemoveRestrictionRole,
			GuildID:  m.GuildID,
			MemberID: m.MemberID,
			RoleID:   m.RestrictionRoleID,
			Text:     why,
		},
		{
			Kind:      domain.ActionNotifyReversal,
			GuildID:   m.GuildID,
			MemberID:  m.MemberID,
			ChannelID: m.LogChannelID,
			Text:      fmt.Sprintf("🔊 Se levantó la restricción de chat de <@%s>", m.MemberID),
		},
	}
}
