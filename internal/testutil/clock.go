package testutil

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Epoch es el instante en que arrancan los relojes manuales de los tests.
var Epoch = time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC)

// ManualClock sólo avanza cuando el test lo pide.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set salta a t (por ejemplo, un vencimiento con fracción de segundo).
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// SeqIDs entrega "<prefix>-1", "<prefix>-2", ... como IDs de snapshot.
type SeqIDs struct {
	prefix string
	n      atomic.Int64
}

func NewSeqIDs(prefix string) *SeqIDs {
	return &SeqIDs{prefix: prefix}
}

func (g *SeqIDs) New() string {
	return g.prefix + "-" + strconv.FormatInt(g.n.Add(1), 10)
}
