package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	discordrouter "github.com/jose-valero/guild-warden/internal/adapters/discord"
	"github.com/jose-valero/guild-warden/internal/adapters/httpapi"
	"github.com/jose-valero/guild-warden/internal/app/scheduler"
	"github.com/jose-valero/guild-warden/internal/app/service"
	"github.com/jose-valero/guild-warden/internal/domain"
	"github.com/jose-valero/guild-warden/internal/infra/config"
	"github.com/jose-valero/guild-warden/internal/infra/storage"
)

// store es todo lo que necesitan los servicios; lo cumplen FileStore y PGStore.
type store interface {
	service.MuteStore
	service.RuleStore
	service.WatchStore
	service.InviteRoleStore
	service.SnapshotStore
}

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage
	st, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	// Discord session (todavía sin abrir: los handlers van antes de Open)
	auth := strings.TrimSpace(cfg.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsGuildMessages

	platform := discordrouter.NewPlatform(s, nil, logger)
	clock := service.RealClock{}

	// Services
	deletions := service.NewDeletionQueue(platform, clock, logger)
	dispatch := service.NewDispatcher(platform, deletions, clock, logger)

	policy := service.InactivityPolicy{
		Warn:       cfg.Settings.Inactivity.Warn(),
		Disconnect: cfg.Settings.Inactivity.Disconnect(),
	}
	tracker := service.NewVoiceTracker(policy, st, platform, dispatch, clock, logger)

	mutes := service.NewMuteRegistry(st, clock, logger)
	if err := mutes.Load(ctx); err != nil {
		log.Fatal(err)
	}
	moderation := service.NewModeration(mutes, tracker, dispatch, clock, service.MuteDefaults{
		RestrictionRoleID: cfg.Settings.Mutes.DefaultRoleID,
		LogChannelID:      cfg.Settings.Mutes.DefaultLogChannelID,
	}, logger)

	rules := service.NewNotificationRules(st, platform, logger)
	if err := rules.Load(ctx); err != nil {
		log.Fatal(err)
	}

	reconciler := service.NewInviteReconciler()
	inviteLog := func(_ context.Context, guildID string) string {
		if ch := cfg.Settings.Invites.LogChannels[guildID]; ch != "" {
			return ch
		}
		return cfg.Settings.Mutes.DefaultLogChannelID
	}
	invites := service.NewInviteService(reconciler, platform, st, dispatch, inviteLog, logger)
	snapshots := service.NewSnapshotService(mutes, rules, st, st, reconciler, st, service.UUIDGenerator{}, clock, logger)

	// Router
	r := discordrouter.NewRouter(s, cfg.DiscordGuild, cfg.AdminRoleIDs, tracker, moderation, invites, rules, logger)
	r.Handlers()

	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	logger.Info("✅ Conectado", "user", s.State.User.Username, "id", s.State.User.ID)

	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	logger.Info("✅ comandos registrados", "guild", cfg.DiscordGuild)

	seedWatches(ctx, cfg, tracker, logger)

	// HTTP: /healthz y /metrics
	web := httpapi.New(func() map[string]any {
		return map[string]any{
			"tracked_voice_members": tracker.Tracked(),
			"active_mutes":          len(mutes.Snapshot()),
			"pending_deletions":     deletions.Len(),
		}
	}, logger)
	go func() {
		if err := web.Start(ctx, cfg.HTTPAddr); err != nil {
			logger.Error("http server", "err", err)
		}
	}()

	iv := cfg.Settings.Intervals
	sched := scheduler.New(logger,
		scheduler.Job{Name: "voice-inactivity", Every: iv.Voice(), Run: tracker.Tick},
		scheduler.Job{Name: "mute-expiry", Every: iv.Mutes(), Run: moderation.Tick},
		scheduler.Job{Name: "log-cleanup", Every: iv.LogCleanup(), Run: deletions.Tick},
		scheduler.Job{Name: "notification-prune", Every: iv.RulePrune(), Run: rules.Prune},
		scheduler.Job{Name: "state-snapshot", Every: iv.Snapshot(), Timeout: time.Minute, Run: snapshots.Tick},
	)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler", "err", err)
	}
	logger.Info("apagando")
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, func()) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal(err)
		}
		if err := storage.Migrate(db); err != nil {
			log.Fatal("migrate:", err)
		}
		logger.Info("✅ DB lista y migrada")
		return storage.NewPGStore(db), func() { _ = db.Close() }
	default:
		fs, err := storage.NewFileStore(cfg.DataDir, logger)
		if err != nil {
			log.Fatal(err)
		}
		logger.Info("✅ usando almacenamiento en disco", "dir", cfg.DataDir)
		return fs, func() {}
	}
}

// seedWatches registra los canales vigilados que vengan en SETTINGS_FILE.
func seedWatches(ctx context.Context, cfg config.Config, tracker *service.VoiceTracker, logger *slog.Logger) {
	for _, w := range cfg.Settings.Watches {
		err := tracker.Watch(ctx, domain.VoiceWatch{
			GuildID:        w.GuildID,
			VoiceChannelID: w.VoiceChannelID,
			LogChannelID:   w.LogChannelID,
			DeleteAfter:    time.Duration(w.DeleteAfterMinutes) * time.Minute,
		})
		if err != nil {
			logger.Warn("seed voice watch", "guild", w.GuildID, "err", err)
			continue
		}
		logger.Info("voice watch seeded", "guild", w.GuildID, "channel", w.VoiceChannelID)
	}
}
