package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// Call es un efecto registrado sobre la plataforma.
type Call struct {
	Op        string // "warn", "disconnect", "add_role", "remove_role", "log", "delete"
	GuildID   string
	MemberID  string
	ChannelID string
	RoleID    string
	Text      string
	MessageID string
}

// FakePlatform es un Discord en memoria con canales, ocupantes de voz e
// invitaciones, que anota cada efecto. Se puede usar desde varias goroutines.
type FakePlatform struct {
	mu sync.Mutex

	channels  map[string]string // channel -> guild
	deleted   map[string]bool
	transient map[string]bool
	voice     map[string][]string // channel -> members
	invites   map[string][]domain.Invite
	fail      map[string]error // op -> error
	intercept map[string]func(Call) error
	inviteErr error

	calls  []Call
	nextID int
}

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		channels:  map[string]string{},
		deleted:   map[string]bool{},
		transient: map[string]bool{},
		voice:     map[string][]string{},
		invites:   map[string][]domain.Invite{},
		fail:      map[string]error{},
		intercept: map[string]func(Call) error{},
	}
}

// AddChannel da de alta un canal del guild.
func (f *FakePlatform) AddChannel(guildID, channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channelID] = guildID
	delete(f.deleted, channelID)
}

// DeleteChannel hace que ResolveChannel devuelva ErrChannelDeleted.
func (f *FakePlatform) DeleteChannel(channelID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted[channelID] = true
}

// SetTransient prende o apaga ErrTransientResolution para un canal.
func (f *FakePlatform) SetTransient(channelID string, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transient[channelID] = on
}

func (f *FakePlatform) SetVoice(channelID string, members ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voice[channelID] = append([]string(nil), members...)
}

func (f *FakePlatform) SetInvites(guildID string, invites map[string]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := make([]domain.Invite, 0, len(invites))
	for code, uses := range invites {
		list = append(list, domain.Invite{Code: code, Uses: uses})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
	f.invites[guildID] = list
}

func (f *FakePlatform) FailInvites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inviteErr = err
}

// Fail hace que toda llamada a op devuelva err (nil lo limpia).
func (f *FakePlatform) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

// Calls devuelve lo registrado, filtrado por op si se pide.
func (f *FakePlatform) Calls(ops ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), f.calls...)
	}
	want := map[string]bool{}
	for _, op := range ops {
		want[op] = true
	}
	var out []Call
	for _, c := range f.calls {
		if want[c.Op] {
			out = append(out, c)
		}
	}
	return out
}

// Intercept corre fn en cada llamada a op, fuera del lock y antes de
// registrarla; el error que devuelve fn es el de la llamada.
func (f *FakePlatform) Intercept(op string, fn func(Call) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intercept[op] = fn
}

func (f *FakePlatform) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakePlatform) record(c Call) error {
	f.mu.Lock()
	fn := f.intercept[c.Op]
	f.mu.Unlock()
	if fn != nil {
		if err := fn(c); err != nil {
			return err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[c.Op]; err != nil {
		return err
	}
	f.calls = append(f.calls, c)
	return nil
}

// ---------- service.Presence ----------

func (f *FakePlatform) VoiceMembers(_ context.Context, _, channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.voice[channelID]...), nil
}

func (f *FakePlatform) ResolveChannel(_ context.Context, channelID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transient[channelID] {
		return "", domain.ErrTransientResolution
	}
	g, ok := f.channels[channelID]
	if !ok || f.deleted[channelID] {
		return "", domain.ErrChannelDeleted
	}
	return g, nil
}

// ---------- service.Actuator ----------

func (f *FakePlatform) SendDirectWarning(_ context.Context, memberID, text string) error {
	return f.record(Call{Op: "warn", MemberID: memberID, Text: text})
}

func (f *FakePlatform) DisconnectFromVoice(_ context.Context, guildID, memberID string) error {
	return f.record(Call{Op: "disconnect", GuildID: guildID, MemberID: memberID})
}

func (f *FakePlatform) AddRole(_ context.Context, guildID, memberID, roleID, reason string) error {
	return f.record(Call{Op: "add_role", GuildID: guildID, MemberID: memberID, RoleID: roleID, Text: reason})
}

func (f *FakePlatform) RemoveRole(_ context.Context, guildID, memberID, roleID, reason string) error {
	return f.record(Call{Op: "remove_role", GuildID: guildID, MemberID: memberID, RoleID: roleID, Text: reason})
}

func (f *FakePlatform) LogEvent(_ context.Context, channelID string, ev domain.LogEvent) (string, error) {
	f.mu.Lock()
	f.nextID++
	msgID := fmt.Sprintf("msg-%d", f.nextID)
	f.mu.Unlock()
	if err := f.record(Call{Op: "log", GuildID: ev.GuildID, MemberID: ev.MemberID, ChannelID: channelID, Text: ev.Text, MessageID: msgID}); err != nil {
		return "", err
	}
	return msgID, nil
}

func (f *FakePlatform) DeleteMessage(_ context.Context, channelID, messageID string) error {
	return f.record(Call{Op: "delete", ChannelID: channelID, MessageID: messageID})
}

// ---------- service.InviteSource ----------

func (f *FakePlatform) FetchInvites(_ context.Context, guildID string) ([]domain.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inviteErr != nil {
		return nil, f.inviteErr
	}
	return append([]domain.Invite(nil), f.invites[guildID]...), nil
}
