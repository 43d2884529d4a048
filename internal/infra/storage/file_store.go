package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
)

const (
	mutesFile       = "mutes.json"
	rulesFile       = "notification_rules.json"
	watchesFile     = "voice_watches.json"
	inviteRolesFile = "invite_roles.json"
	snapshotsDir    = "snapshots"
)

// FileStore es el backend en disco: un JSON por store dentro de dir.
// Cada escritura es atómica (tmp + rename) para no dejar archivos a medias.
type FileStore struct {
	mu  sync.Mutex
	dir string
	log *slog.Logger
}

func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, snapshotsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &FileStore{dir: dir, log: log}, nil
}

// ---------- mutes ----------

func (fs *FileStore) LoadMutes(_ context.Context) ([]domain.MuteRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	b, err := fs.read(mutesFile)
	if err != nil {
		return nil, err
	}
	mutes, skipped, err := DecodeMutes(b)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		fs.log.Warn("skipped malformed mute entries", "file", mutesFile, "skipped", skipped)
	}
	return mutes, nil
}

func (fs *FileStore) SaveMutes(_ context.Context, mutes []domain.MuteRecord) error {
	b, err := EncodeMutes(mutes)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.write(mutesFile, b)
}

// ---------- notification rules ----------

type ruleEntry struct {
	GuildID string   `json:"guild_id"`
	RoleIDs []string `json:"role_ids"`
}

func (fs *FileStore) loadRules() (map[string]ruleEntry, error) {
	doc := map[string]ruleEntry{}
	if err := fs.readJSON(rulesFile, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (fs *FileStore) ListRules(_ context.Context) ([]domain.NotificationRule, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadRules()
	if err != nil {
		return nil, err
	}
	out := make([]domain.NotificationRule, 0, len(doc))
	for ch, e := range doc {
		if !domain.IsSnowflake(ch) || !domain.IsSnowflake(e.GuildID) {
			continue
		}
		out = append(out, domain.NotificationRule{ChannelID: ch, GuildID: e.GuildID, RoleIDs: e.RoleIDs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (fs *FileStore) UpsertRule(_ context.Context, nr domain.NotificationRule) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadRules()
	if err != nil {
		return err
	}
	doc[nr.ChannelID] = ruleEntry{GuildID: nr.GuildID, RoleIDs: nr.RoleIDs}
	return fs.writeJSON(rulesFile, doc)
}

func (fs *FileStore) DeleteRule(_ context.Context, channelID string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadRules()
	if err != nil {
		return false, err
	}
	if _, ok := doc[channelID]; !ok {
		return false, nil
	}
	delete(doc, channelID)
	return true, fs.writeJSON(rulesFile, doc)
}

// ---------- voice watches ----------

type watchEntry struct {
	VoiceChannelID     string `json:"voice_channel_id"`
	LogChannelID       string `json:"log_channel_id"`
	DeleteAfterMinutes int    `json:"delete_after_minutes"`
}

func (fs *FileStore) loadWatches() (map[string]watchEntry, error) {
	doc := map[string]watchEntry{}
	if err := fs.readJSON(watchesFile, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (fs *FileStore) ListWatches(_ context.Context) ([]domain.VoiceWatch, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadWatches()
	if err != nil {
		return nil, err
	}
	out := make([]domain.VoiceWatch, 0, len(doc))
	for g, e := range doc {
		if !domain.IsSnowflake(g) {
			continue
		}
		out = append(out, domain.VoiceWatch{
			GuildID:        g,
			VoiceChannelID: e.VoiceChannelID,
			LogChannelID:   e.LogChannelID,
			DeleteAfter:    time.Duration(e.DeleteAfterMinutes) * time.Minute,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

func (fs *FileStore) UpsertWatch(_ context.Context, w domain.VoiceWatch) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadWatches()
	if err != nil {
		return err
	}
	doc[w.GuildID] = watchEntry{
		VoiceChannelID:     w.VoiceChannelID,
		LogChannelID:       w.LogChannelID,
		DeleteAfterMinutes: int(w.DeleteAfter / time.Minute),
	}
	return fs.writeJSON(watchesFile, doc)
}

func (fs *FileStore) DeleteWatch(_ context.Context, guildID string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadWatches()
	if err != nil {
		return false, err
	}
	if _, ok := doc[guildID]; !ok {
		return false, nil
	}
	delete(doc, guildID)
	return true, fs.writeJSON(watchesFile, doc)
}

// ---------- invite roles ----------

func (fs *FileStore) loadInviteRoles() (map[string]map[string]string, error) {
	doc := map[string]map[string]string{}
	if err := fs.readJSON(inviteRolesFile, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (fs *FileStore) ListInviteRoles(_ context.Context) ([]domain.InviteRole, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadInviteRoles()
	if err != nil {
		return nil, err
	}
	var out []domain.InviteRole
	for g, codes := range doc {
		for code, role := range codes {
			out = append(out, domain.InviteRole{GuildID: g, Code: code, RoleID: role})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GuildID != out[j].GuildID {
			return out[i].GuildID < out[j].GuildID
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

func (fs *FileStore) UpsertInviteRole(_ context.Context, ir domain.InviteRole) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadInviteRoles()
	if err != nil {
		return err
	}
	if doc[ir.GuildID] == nil {
		doc[ir.GuildID] = map[string]string{}
	}
	doc[ir.GuildID][ir.Code] = ir.RoleID
	return fs.writeJSON(inviteRolesFile, doc)
}

func (fs *FileStore) DeleteInviteRole(_ context.Context, guildID, code string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	doc, err := fs.loadInviteRoles()
	if err != nil {
		return false, err
	}
	if _, ok := doc[guildID][code]; !ok {
		return false, nil
	}
	delete(doc[guildID], code)
	if len(doc[guildID]) == 0 {
		delete(doc, guildID)
	}
	return true, fs.writeJSON(inviteRolesFile, doc)
}

// ---------- snapshots ----------

func snapshotName(s domain.StateSnapshot) string {
	return fmt.Sprintf("backup_%s_%s.json", s.CreatedAt.UTC().Format("20060102_150405"), s.ID)
}

func (fs *FileStore) SaveSnapshot(_ context.Context, s domain.StateSnapshot) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.write(filepath.Join(snapshotsDir, snapshotName(s)), s.Payload)
}

// PruneSnapshots borra los backups viejos y deja los `keep` más nuevos.
func (fs *FileStore) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(fs.dir, snapshotsDir, "backup_*.json"))
	if err != nil {
		return 0, err
	}
	sort.Strings(matches) // el timestamp en el nombre ordena cronológicamente
	if len(matches) <= keep {
		return 0, nil
	}
	var n int64
	for _, p := range matches[:len(matches)-keep] {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return n, err
		}
		n++
	}
	return n, nil
}

// ---------- helpers ----------

func (fs *FileStore) read(name string) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(fs.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return b, err
}

func (fs *FileStore) readJSON(name string, v any) error {
	b, err := fs.read(name)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func (fs *FileStore) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fs.write(name, b)
}

func (fs *FileStore) write(name string, b []byte) error {
	path := filepath.Join(fs.dir, name)
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
