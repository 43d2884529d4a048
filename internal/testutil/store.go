package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// MemStore implementa todos los stores en memoria. Con SetSaveErr toda
// escritura falla.
type MemStore struct {
	mu      sync.Mutex
	SaveErr error

	mutes     []domain.MuteRecord
	saves     int
	rules     map[string]domain.NotificationRule
	watches   map[string]domain.VoiceWatch
	roles     map[string]domain.InviteRole
	snapshots []domain.StateSnapshot
}

func NewMemStore() *MemStore {
	return &MemStore{
		rules:   map[string]domain.NotificationRule{},
		watches: map[string]domain.VoiceWatch{},
		roles:   map[string]domain.InviteRole{},
	}
}

func (s *MemStore) SetSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SaveErr = err
}

func (s *MemStore) LoadMutes(context.Context) ([]domain.MuteRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.MuteRecord(nil), s.mutes...), nil
}

func (s *MemStore) SaveMutes(_ context.Context, mutes []domain.MuteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mutes = append([]domain.MuteRecord(nil), mutes...)
	s.saves++
	return nil
}

// MuteSaves cuenta los SaveMutes que salieron bien.
func (s *MemStore) MuteSaves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemStore) ListRules(context.Context) ([]domain.NotificationRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NotificationRule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (s *MemStore) UpsertRule(_ context.Context, nr domain.NotificationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.rules[nr.ChannelID] = nr
	return nil
}

func (s *MemStore) DeleteRule(_ context.Context, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return false, s.SaveErr
	}
	_, ok := s.rules[channelID]
	delete(s.rules, channelID)
	return ok, nil
}

func (s *MemStore) ListWatches(context.Context) ([]domain.VoiceWatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.VoiceWatch, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

func (s *MemStore) UpsertWatch(_ context.Context, w domain.VoiceWatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.watches[w.GuildID] = w
	return nil
}

func (s *MemStore) DeleteWatch(_ context.Context, guildID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return false, s.SaveErr
	}
	_, ok := s.watches[guildID]
	delete(s.watches, guildID)
	return ok, nil
}

func (s *MemStore) ListInviteRoles(context.Context) ([]domain.InviteRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.InviteRole, 0, len(s.roles))
	for _, r := range s.roles {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID+out[i].Code < out[j].GuildID+out[j].Code })
	return out, nil
}

func (s *MemStore) UpsertInviteRole(_ context.Context, ir domain.InviteRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.roles[ir.GuildID+"/"+ir.Code] = ir
	return nil
}

func (s *MemStore) DeleteInviteRole(_ context.Context, guildID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return false, s.SaveErr
	}
	k := guildID + "/" + code
	_, ok := s.roles[k]
	delete(s.roles, k)
	return ok, nil
}

func (s *MemStore) SaveSnapshot(_ context.Context, snap domain.StateSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.snapshots = append(s.snapshots, snap)
	return nil
}

func (s *MemStore) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.snapshots) <= keep {
		return 0, nil
	}
	n := len(s.snapshots) - keep
	s.snapshots = append([]domain.StateSnapshot(nil), s.snapshots[n:]...)
	return int64(n), nil
}

func (s *MemStore) Snapshots() []domain.StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StateSnapshot(nil), s.snapshots...)
}
