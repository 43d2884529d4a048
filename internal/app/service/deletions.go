package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type pendingDeletion struct {
	channelID string
	messageID string
	at        time.Time
}

// DeletionQueue borra mensajes de log cuando vence su plazo. Se revisa en
// cada tick en vez de dejar una goroutine dormida por mensaje.
// No se persiste: tras un reinicio esos mensajes quedan.
type DeletionQueue struct {
	mu      sync.Mutex
	pending []pendingDeletion
	p       Actuator
	clock   Clock
	log     *slog.Logger
}

func NewDeletionQueue(p Actuator, clock Clock, log *slog.Logger) *DeletionQueue {
	return &DeletionQueue{p: p, clock: clock, log: log.With("component", "log-cleanup")}
}

func (q *DeletionQueue) Schedule(channelID, messageID string, at time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, pendingDeletion{channelID: channelID, messageID: messageID, at: at})
}

func (q *DeletionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Tick borra lo vencido. Un fallo no se reintenta (el mensaje pudo haber sido borrado a mano).
func (q *DeletionQueue) Tick(ctx context.Context) error {
	now := q.clock.Now()

	q.mu.Lock()
	var due []pendingDeletion
	keep := q.pending[:0]
	for _, pd := range q.pending {
		if !pd.at.After(now) {
			due = append(due, pd)
			continue
		}
		keep = append(keep, pd)
	}
	q.pending = keep
	q.mu.Unlock()

	for _, pd := range due {
		cctx, cancel := context.WithTimeout(ctx, actionTimeout)
		err := q.p.DeleteMessage(cctx, pd.channelID, pd.messageID)
		cancel()
		if err != nil {
			q.log.Debug("delete log message", "channel", pd.channelID, "message", pd.messageID, "err", err)
		}
	}
	return nil
}
