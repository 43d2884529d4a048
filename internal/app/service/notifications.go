package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/jose-valero/guild-warden/internal/domain"
)

// NotificationRules: qué roles mencionar cuando se publica en un canal.
type NotificationRules struct {
	mu       sync.RWMutex
	rules    map[string]domain.NotificationRule
	store    RuleStore
	presence Presence
	log      *slog.Logger
}

func NewNotificationRules(store RuleStore, presence Presence, log *slog.Logger) *NotificationRules {
	return &NotificationRules{
		rules:    map[string]domain.NotificationRule{},
		store:    store,
		presence: presence,
		log:      log.With("component", "notifications"),
	}
}

func (n *NotificationRules) Load(ctx context.Context) error {
	all, err := n.store.ListRules(ctx)
	if err != nil {
		return fmt.Errorf("load notification rules: %w", err)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rules = make(map[string]domain.NotificationRule, len(all))
	for _, nr := range all {
		n.rules[nr.ChannelID] = nr
	}
	return nil
}

// SetRule valida que el canal sea del guild y persiste la regla.
func (n *NotificationRules) SetRule(ctx context.Context, guildID, channelID string, roleIDs []string) (domain.NotificationRule, error) {
	roles := dedupe(roleIDs)
	if guildID == "" || channelID == "" || len(roles) == 0 {
		return domain.NotificationRule{}, fmt.Errorf("%w: guild, channel and at least one role are required", domain.ErrInvalidArgument)
	}
	owner, err := n.presence.ResolveChannel(ctx, channelID)
	if err != nil {
		return domain.NotificationRule{}, err
	}
	if owner != guildID {
		return domain.NotificationRule{}, domain.ErrGuildMismatch
	}

	nr := domain.NotificationRule{ChannelID: channelID, GuildID: guildID, RoleIDs: roles}
	if err := n.store.UpsertRule(ctx, nr); err != nil {
		return domain.NotificationRule{}, fmt.Errorf("persist rule: %w", err)
	}
	n.mu.Lock()
	n.rules[channelID] = nr
	n.mu.Unlock()
	return nr, nil
}

func (n *NotificationRules) RemoveRule(ctx context.Context, channelID string) error {
	ok, err := n.store.DeleteRule(ctx, channelID)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	n.mu.Lock()
	_, had := n.rules[channelID]
	delete(n.rules, channelID)
	n.mu.Unlock()
	if !ok && !had {
		return domain.ErrNotFound
	}
	return nil
}

// Mentions arma la línea de menciones del canal, si tiene regla.
func (n *NotificationRules) Mentions(channelID string) (string, bool) {
	n.mu.RLock()
	nr, ok := n.rules[channelID]
	n.mu.RUnlock()
	if !ok || len(nr.RoleIDs) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(nr.RoleIDs))
	for _, id := range nr.RoleIDs {
		parts = append(parts, "<@&"+id+">")
	}
	return strings.Join(parts, " "), true
}

// Prune borra las reglas de canales que ya no existen. Un error transitorio
// deja la regla como está hasta el próximo tick.
func (n *NotificationRules) Prune(ctx context.Context) error {
	var stale []string
	for _, nr := range n.Snapshot() {
		owner, err := n.presence.ResolveChannel(ctx, nr.ChannelID)
		switch {
		case errors.Is(err, domain.ErrChannelDeleted):
			stale = append(stale, nr.ChannelID)
		case err != nil:
			n.log.Debug("rule channel did not resolve", "channel", nr.ChannelID, "err", err)
		case owner != nr.GuildID:
			n.log.Warn("rule guild mismatch", "channel", nr.ChannelID, "rule_guild", nr.GuildID, "channel_guild", owner)
		}
	}

	for _, ch := range stale {
		if err := n.RemoveRule(ctx, ch); err != nil && !errors.Is(err, domain.ErrNotFound) {
			n.log.Warn("prune rule", "channel", ch, "err", err)
			continue
		}
		n.log.Info("pruned rule for deleted channel", "channel", ch)
	}
	return nil
}

func (n *NotificationRules) Snapshot() []domain.NotificationRule {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]domain.NotificationRule, 0, len(n.rules))
	for _, nr := range n.rules {
		nr.RoleIDs = append([]string(nil), nr.RoleIDs...)
		out = append(out, nr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
