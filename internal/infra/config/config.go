package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	DiscordToken string
	DiscordGuild string // opcional: registra los comandos sólo en este guild
	StoreBackend string // file | postgres
	DataDir      string
	DatabaseURL  string // obligatorio con postgres
	HTTPAddr     string // opcional, default :8080
	AdminRoleIDs []string
	LogLevel     string
	LogFormat    string // text | json
	SettingsFile string

	Settings Settings
}

// Settings es el archivo TOML opcional (SETTINGS_FILE).
type Settings struct {
	Inactivity InactivitySettings `toml:"inactivity"`
	Intervals  IntervalSettings   `toml:"intervals"`
	Mutes      MuteSettings       `toml:"mutes"`
	Invites    InviteSettings     `toml:"invites"`
	Watches    []WatchSettings    `toml:"voice_watch"`
}

type InactivitySettings struct {
	WarnMinutes       int `toml:"warn_minutes"`
	DisconnectMinutes int `toml:"disconnect_minutes"`
}

type IntervalSettings struct {
	VoiceSeconds      int `toml:"voice_seconds"`
	MutesSeconds      int `toml:"mutes_seconds"`
	LogCleanupSeconds int `toml:"log_cleanup_seconds"`
	RulePruneSeconds  int `toml:"rule_prune_seconds"`
	SnapshotSeconds   int `toml:"snapshot_seconds"`
}

type MuteSettings struct {
	DefaultRoleID       string `toml:"default_role_id"`
	DefaultLogChannelID string `toml:"default_log_channel_id"`
}

type InviteSettings struct {
	LogChannels map[string]string `toml:"log_channels"` // guild -> canal
}

// WatchSettings siembra un canal vigilado al arrancar.
type WatchSettings struct {
	GuildID            string `toml:"guild_id"`
	VoiceChannelID     string `toml:"voice_channel_id"`
	LogChannelID       string `toml:"log_channel_id"`
	DeleteAfterMinutes int    `toml:"delete_after_minutes"`
}

func DefaultSettings() Settings {
	return Settings{
		Inactivity: InactivitySettings{WarnMinutes: 10, DisconnectMinutes: 15},
		Intervals: IntervalSettings{
			VoiceSeconds:      60,
			MutesSeconds:      60,
			LogCleanupSeconds: 60,
			RulePruneSeconds:  300,
			SnapshotSeconds:   1800,
		},
	}
}

func (i InactivitySettings) Warn() time.Duration { return time.Duration(i.WarnMinutes) * time.Minute }
func (i InactivitySettings) Disconnect() time.Duration {
	return time.Duration(i.DisconnectMinutes) * time.Minute
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (i IntervalSettings) Voice() time.Duration      { return seconds(i.VoiceSeconds) }
func (i IntervalSettings) Mutes() time.Duration      { return seconds(i.MutesSeconds) }
func (i IntervalSettings) LogCleanup() time.Duration { return seconds(i.LogCleanupSeconds) }
func (i IntervalSettings) RulePrune() time.Duration  { return seconds(i.RulePruneSeconds) }
func (i IntervalSettings) Snapshot() time.Duration   { return seconds(i.SnapshotSeconds) }

// Load lee el entorno (y SETTINGS_FILE si está). Corta el proceso si algo falta.
func Load() Config {
	cfg, err := Parse(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse arma la config a partir de getenv; separado de Load para poder testearlo.
func Parse(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		DiscordToken: get("DISCORD_BOT_TOKEN", ""),
		DiscordGuild: get("DISCORD_GUILD_ID", ""),
		StoreBackend: strings.ToLower(get("STORE_BACKEND", BackendFile)),
		DataDir:      get("DATA_DIR", "./data"),
		DatabaseURL:  get("DATABASE_URL", ""),
		HTTPAddr:     get("HTTP_ADDR", ":8080"),
		AdminRoleIDs: splitList(get("ADMIN_ROLE_IDS", "")),
		LogLevel:     strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(get("LOG_FORMAT", "text")),
		SettingsFile: get("SETTINGS_FILE", ""),
		Settings:     DefaultSettings(),
	}

	if cfg.SettingsFile != "" {
		if err := ReadSettings(cfg.SettingsFile, &cfg.Settings); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadSettings pisa sobre s sólo lo que trae el archivo.
func ReadSettings(path string, s *Settings) error {
	if _, err := toml.DecodeFile(path, s); err != nil {
		return fmt.Errorf("reading settings from %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DiscordToken == "" {
		errs = append(errs, errors.New("faltante env DISCORD_BOT_TOKEN"))
	}
	switch c.StoreBackend {
	case BackendFile:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("faltante env DATABASE_URL (STORE_BACKEND=postgres)"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND desconocido %q", c.StoreBackend))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT desconocido %q", c.LogFormat))
	}

	in := c.Settings.Inactivity
	if in.WarnMinutes <= 0 || in.DisconnectMinutes <= in.WarnMinutes {
		errs = append(errs, fmt.Errorf("inactivity: need 0 < warn (%d) < disconnect (%d)", in.WarnMinutes, in.DisconnectMinutes))
	}
	iv := c.Settings.Intervals
	for name, n := range map[string]int{
		"voice_seconds":       iv.VoiceSeconds,
		"mutes_seconds":       iv.MutesSeconds,
		"log_cleanup_seconds": iv.LogCleanupSeconds,
		"rule_prune_seconds":  iv.RulePruneSeconds,
		"snapshot_seconds":    iv.SnapshotSeconds,
	} {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("intervals.%s must be positive", name))
		}
	}
	for i, w := range c.Settings.Watches {
		if w.GuildID == "" || w.VoiceChannelID == "" || w.LogChannelID == "" {
			errs = append(errs, fmt.Errorf("voice_watch[%d]: guild_id, voice_channel_id and log_channel_id are required", i))
		}
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
