package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ActionsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_actions_dispatched_total",
	Help: "Action requests applied to the platform, by kind and result",
}, []string{"kind", "result"})

var TickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "warden_tick_duration_seconds",
	Help:    "Duration of scheduled job ticks",
	Buckets: prometheus.DefBuckets,
}, []string{"job"})

var TickFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_tick_failures_total",
	Help: "Scheduled ticks that returned an error or panicked",
}, []string{"job"})

var TrackedVoiceMembers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_tracked_voice_members",
	Help: "Members currently tracked in watched voice channels",
})

var ActiveMutes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "warden_active_mutes",
	Help: "Temporary mutes waiting for expiry",
})

var InviteAttributions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_invite_attributions_total",
	Help: "Member joins by attribution outcome",
}, []string{"outcome"})

var SkippedGuilds = promauto.NewCounter(prometheus.CounterOpts{
	Name: "warden_skipped_guild_ticks_total",
	Help: "Guild evaluations skipped because a channel did not resolve",
})

var StoreWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warden_store_write_failures_total",
	Help: "Failed durable writes by store",
}, []string{"store"})

var CommandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "warden_command_duration_seconds",
	Help:    "Slash command handling time, by command",
	Buckets: prometheus.DefBuckets,
}, []string{"command"})
