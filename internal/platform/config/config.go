package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string `yaml:"service_name"`
	HTTPPort    string `yaml:"http_port"`
	LogLevel    string `yaml:"log_level"`

	PostgresDSN  string   `yaml:"postgres_dsn"`
	AutoMigrate  bool     `yaml:"auto_migrate"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	RedisURL     string   `yaml:"redis_url"`

	DiscordBotToken string `yaml:"discord_bot_token"`
	DiscordGuildID  string `yaml:"discord_guild_id"`

	FrontendURL    string   `yaml:"frontend_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	EnableDeadlineScheduler bool          `yaml:"enable_deadline_scheduler"`
	DeadlineTickInterval    time.Duration `yaml:"deadline_tick_interval"`
	DeadlineGraceWindow     time.Duration `yaml:"deadline_grace_window"`
	RecurrenceMaxInstances  int           `yaml:"recurrence_max_instances"`
	LiveQueueSize           int           `yaml:"live_queue_size"`
	VoteNotifyTimeout       time.Duration `yaml:"vote_notify_timeout"`
}

func Defaults() Config {
	return Config{
		ServiceName:             "sheepyard",
		HTTPPort:                "8080",
		LogLevel:                "info",
		FrontendURL:             "http://localhost:5173",
		EnableDeadlineScheduler: true,
		DeadlineTickInterval:    60 * time.Second,
		DeadlineGraceWindow:     6 * time.Hour,
		RecurrenceMaxInstances:  365,
		LiveQueueSize:           16,
		VoteNotifyTimeout:       10 * time.Second,
	}
}

// Load layers the YAML file at path (optional) over the defaults and the
// environment over both.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path = strings.TrimSpace(path); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceName = envString("SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPPort = envString("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.PostgresDSN = envString("POSTGRES_DSN", cfg.PostgresDSN)
	cfg.AutoMigrate = envBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.KafkaBrokers = envList("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.RedisURL = envString("REDIS_URL", cfg.RedisURL)
	cfg.DiscordBotToken = envString("DISCORD_BOT_TOKEN", cfg.DiscordBotToken)
	cfg.DiscordGuildID = envString("DISCORD_GUILD_ID", cfg.DiscordGuildID)
	cfg.FrontendURL = envString("FRONTEND_URL", cfg.FrontendURL)
	cfg.AllowedOrigins = envList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.EnableDeadlineScheduler = envBool("ENABLE_DEADLINE_SCHEDULER", cfg.EnableDeadlineScheduler)
	cfg.DeadlineTickInterval = envDuration("DEADLINE_TICK_INTERVAL", cfg.DeadlineTickInterval)
	cfg.DeadlineGraceWindow = envDuration("DEADLINE_GRACE_WINDOW", cfg.DeadlineGraceWindow)
	cfg.RecurrenceMaxInstances = envInt("RECURRENCE_MAX_INSTANCES", cfg.RecurrenceMaxInstances)
	cfg.LiveQueueSize = envInt("LIVE_QUEUE_SIZE", cfg.LiveQueueSize)
	cfg.VoteNotifyTimeout = envDuration("VOTE_NOTIFY_TIMEOUT", cfg.VoteNotifyTimeout)
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPPort) == "" {
		errs = append(errs, errors.New("http port is required"))
	}
	if c.DeadlineTickInterval <= 0 {
		errs = append(errs, errors.New("deadline tick interval must be positive"))
	}
	if c.DeadlineGraceWindow <= 0 {
		errs = append(errs, errors.New("deadline grace window must be positive"))
	}
	if c.RecurrenceMaxInstances <= 0 {
		errs = append(errs, errors.New("recurrence max instances must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Flags are the command line options shared by every process.
type Flags struct {
	ConfigPath string
	Port       string
	Help       bool
}

// ParseFlags parses args (without the program name). An explicit --port
// wins over file and environment.
func ParseFlags(name string, args []string, output io.Writer) (Flags, error) {
	var flags Flags
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if output != nil {
		flagSet.SetOutput(output)
	}
	flagSet.StringVarP(&flags.ConfigPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to a YAML config file")
	flagSet.StringVar(&flags.Port, "port", "", "HTTP listen port (overrides config)")
	flagSet.BoolVarP(&flags.Help, "help", "h", false, "show help")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			flags.Help = true
			return flags, nil
		}
		return Flags{}, err
	}
	if flags.Help && output != nil {
		fmt.Fprintf(output, "Usage of %s:\n%s", name, flagSet.FlagUsages())
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return Flags{}, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return flags, nil
}

// Apply overlays explicit flag values on cfg.
func (f Flags) Apply(cfg Config) Config {
	if port := strings.TrimSpace(f.Port); port != "" {
		cfg.HTTPPort = port
	}
	return cfg
}

func envString(name string, fallback string) string {
	if raw := strings.TrimSpace(os.Getenv(name)); raw != "" {
		return raw
	}
	return fallback
}

func envList(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	var out []string
	for _, value := range strings.Split(raw, ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// envDuration accepts Go durations ("90s") or bare seconds ("90").
func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
