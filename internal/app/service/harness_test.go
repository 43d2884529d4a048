package service

import (
	"testing"
	"time"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/testutil"
)

const (
	guildID    = "100000000000000001"
	voiceID    = "200000000000000001"
	logID      = "200000000000000002"
	otherGuild = "100000000000000002"

	member1 = "300000000000000001"
	member2 = "300000000000000002"
)

type harness struct {
	clock     *testutil.ManualClock
	platform  *testutil.FakePlatform
	store     *testutil.MemStore
	deletions *DeletionQueue
	dispatch  *Dispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    testutil.NewManualClock(),
		platform: testutil.NewFakePlatform(),
		store:    testutil.NewMemStore(),
	}
	h.platform.AddChannel(guildID, voiceID)
	h.platform.AddChannel(guildID, logID)
	h.deletions = NewDeletionQueue(h.platform, h.clock, testutil.NopLogger())
	h.dispatch = NewDispatcher(h.platform, h.deletions, h.clock, testutil.NopLogger())
	return h
}

func (h *harness) tracker(t *testing.T, deleteAfter time.Duration) *VoiceTracker {
	t.Helper()
	policy := InactivityPolicy{Warn: 10 * time.Minute, Disconnect: 15 * time.Minute}
	tr := NewVoiceTracker(policy, h.store, h.platform, h.dispatch, h.clock, testutil.NopLogger())
	w := domain.VoiceWatch{GuildID: guildID, VoiceChannelID: voiceID, LogChannelID: logID, DeleteAfter: deleteAfter}
	if err := tr.Watch(t.Context(), w); err != nil {
		t.Fatalf("watch: %v", err)
	}
	return tr
}

func (h *harness) registry() *MuteRegistry {
	return NewMuteRegistry(h.store, h.clock, testutil.NopLogger())
}

func kinds(actions []domain.ActionRequest) []domain.ActionKind {
	out := make([]domain.ActionKind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}
