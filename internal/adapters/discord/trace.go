package discord

import (
	"time"

	"github.com/jose-valero/guild-warden/internal/infra/metrics"
)

func step(label string) func() {
	start := time.Now()
	return func() { metrics.CommandDuration.WithLabelValues(label).Observe(time.Since(start).Seconds()) }
}
