package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/infra/metrics"
)

const (
	actionTimeout   = 10 * time.Second
	dispatchWorkers = 4
)

// Dispatcher aplica ActionRequests contra la plataforma.
// Las acciones de un mismo miembro van en orden; miembros distintos en paralelo.
// Nada se reintenta: un fallo se loguea y se devuelve en su posición.
type Dispatcher struct {
	p         Actuator
	deletions *DeletionQueue
	clock     Clock
	log       *slog.Logger
}

func NewDispatcher(p Actuator, deletions *DeletionQueue, clock Clock, log *slog.Logger) *Dispatcher {
	return &Dispatcher{p: p, deletions: deletions, clock: clock, log: log.With("component", "dispatch")}
}

// Dispatch devuelve un error por acción (nil = ok), alineado con actions.
func (d *Dispatcher) Dispatch(ctx context.Context, actions []domain.ActionRequest) []error {
	errs := make([]error, len(actions))
	if len(actions) == 0 {
		return errs
	}

	// agrupamos por miembro conservando el orden de aparición
	var order []domain.MemberKey
	groups := map[domain.MemberKey][]int{}
	for i, a := range actions {
		k := domain.MemberKey{GuildID: a.GuildID, MemberID: a.MemberID}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var g errgroup.Group
	g.SetLimit(dispatchWorkers)
	for _, k := range order {
		idx := groups[k]
		g.Go(func() error {
			for _, i := range idx {
				errs[i] = d.apply(ctx, actions[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

func (d *Dispatcher) apply(ctx context.Context, a domain.ActionRequest) error {
	ctx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	err := d.call(ctx, a)
	result := "ok"
	switch {
	case errors.Is(err, errSkipped):
		metrics.ActionsDispatched.WithLabelValues(string(a.Kind), "skipped").Inc()
		return nil
	case err != nil:
		result = "error"
		err = &domain.ActuationError{Kind: a.Kind, Err: err}
		d.log.Warn("action failed", "kind", a.Kind, "guild", a.GuildID, "member", a.MemberID, "err", err)
	}
	metrics.ActionsDispatched.WithLabelValues(string(a.Kind), result).Inc()
	return err
}

var errSkipped = errors.New("skipped")

func (d *Dispatcher) call(ctx context.Context, a domain.ActionRequest) error {
	switch a.Kind {
	case domain.ActionWarnMember:
		return d.p.SendDirectWarning(ctx, a.MemberID, a.Text)

	case domain.ActionDisconnectMember:
		return d.p.DisconnectFromVoice(ctx, a.GuildID, a.MemberID)

	case domain.ActionApplyRestrictionRole, domain.ActionGrantRole:
		return d.p.AddRole(ctx, a.GuildID, a.MemberID, a.RoleID, a.Text)

	case domain.ActionRemoveRestrictionRole:
		return d.p.RemoveRole(ctx, a.GuildID, a.MemberID, a.RoleID, a.Text)

	case domain.ActionLogDisconnect, domain.ActionNotifyReversal, domain.ActionLogInviteJoin:
		if a.ChannelID == "" {
			return errSkipped
		}
		msgID, err := d.p.LogEvent(ctx, a.ChannelID, domain.LogEvent{
			Kind:     a.Kind,
			GuildID:  a.GuildID,
			MemberID: a.MemberID,
			Text:     a.Text,
			At:       d.clock.Now(),
		})
		if err != nil {
			return err
		}
		if a.DeleteAfter > 0 && msgID != "" && d.deletions != nil {
			d.deletions.Schedule(a.ChannelID, msgID, d.clock.Now().Add(a.DeleteAfter))
		}
		return nil
	}
	return errors.New("unknown action kind " + string(a.Kind))
}
