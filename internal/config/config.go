package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "OVC"

type AuthConfig struct {
	MaxAttempts      int           `mapstructure:"max_attempts"`
	BlockWindow      time.Duration `mapstructure:"block_window"`
	FailureRetention time.Duration `mapstructure:"failure_retention"`
	MinIterations    int           `mapstructure:"min_iterations"`
	KeyLength        int           `mapstructure:"key_length"`
	Workers          int           `mapstructure:"workers"`
}

type VoteConfig struct {
	Window      time.Duration `mapstructure:"window"`
	Cooldown    time.Duration `mapstructure:"cooldown"`
	BanDuration time.Duration `mapstructure:"ban_duration"`
	KickGrace   time.Duration `mapstructure:"kick_grace"`
}

type BanConfig struct {
	NoticeGrace time.Duration `mapstructure:"notice_grace"`
}

type ChatConfig struct {
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

type NetConfig struct {
	// IPHeaders are consulted in order for the client address.
	IPHeaders  []string `mapstructure:"ip_headers"`
	ICEServers []string `mapstructure:"ice_servers"`
}

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`
	RoomsFile  string        `mapstructure:"rooms_file"`

	Auth AuthConfig `mapstructure:"auth"`
	Vote VoteConfig `mapstructure:"vote"`
	Ban  BanConfig  `mapstructure:"ban"`
	Chat ChatConfig `mapstructure:"chat"`
	Net  NetConfig  `mapstructure:"net"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("rooms_file", "config/rooms.json")

	v.SetDefault("auth.max_attempts", 5)
	v.SetDefault("auth.block_window", "5m")
	v.SetDefault("auth.failure_retention", "24h")
	v.SetDefault("auth.min_iterations", 600000)
	v.SetDefault("auth.key_length", 32)
	v.SetDefault("auth.workers", runtime.GOMAXPROCS(0))

	v.SetDefault("vote.window", "30s")
	v.SetDefault("vote.cooldown", "60s")
	v.SetDefault("vote.ban_duration", "5m")
	v.SetDefault("vote.kick_grace", "200ms")

	v.SetDefault("ban.notice_grace", "1s")

	v.SetDefault("chat.rate_limit", 10)
	v.SetDefault("chat.rate_window", "5s")

	v.SetDefault("net.ip_headers", []string{"CF-Connecting-IP", "X-Forwarded-For"})
	v.SetDefault("net.ice_servers", []string{"stun:stun.l.google.com:19302"})
}

// Load reads the config file, then OVC_* environment variables, then the
// command line flags in args.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to the YAML config file")
	fs.Int("port", 8080, "HTTP listen port")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("port", fs.Lookup("port")); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	fileName := *configFile
	if fileName == "" {
		env := os.Getenv("CONFIG_ENV")
		if env == "" {
			env = "dev"
		}
		fileName = fmt.Sprintf("config/config.%s.yaml", env)
	}
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Err(err).Str("module", "config").Str("file", fileName).Msg("config file not loaded, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("static", cfg.StaticPath).Msg("config ready")
	return &cfg, nil
}
