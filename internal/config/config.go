package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/justinabrahms/boardcore/internal/engine"
	"github.com/justinabrahms/boardcore/internal/search"
	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Game        GameConfig        `mapstructure:"game"`
	Search      SearchConfig      `mapstructure:"search"`
	Results     ResultsConfig     `mapstructure:"results"`
	Development DevelopmentConfig `mapstructure:"development"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GameConfig holds the defaults for new sessions.
type GameConfig struct {
	Variant     string              `mapstructure:"variant"`
	Difficulty  string              `mapstructure:"difficulty"`
	PlayerSide  string              `mapstructure:"player_side"`
	Opponent    string              `mapstructure:"opponent"`
	GoSize      int                 `mapstructure:"go_size"`
	Komi        float64             `mapstructure:"komi"`
	TimeControl session.TimeControl `mapstructure:"time_control"`
}

type SearchConfig struct {
	TableSize int                       `mapstructure:"table_size"`
	Profiles  map[string]search.Profile `mapstructure:"profiles"`
	DepthCaps map[string]int            `mapstructure:"depth_caps"`
}

type ResultsConfig struct {
	Limit int `mapstructure:"limit"`
	// Archive is a CAR file loaded on start and written on shutdown. Empty
	// keeps results in memory only.
	Archive string `mapstructure:"archive"`
}

type DevelopmentConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.sweep_interval", 5*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("game.variant", string(engine.Chess))
	v.SetDefault("game.difficulty", string(search.Medium))
	v.SetDefault("game.player_side", string(session.SideA))
	v.SetDefault("game.opponent", string(session.OpponentAI))
	v.SetDefault("game.go_size", 9)
	v.SetDefault("game.komi", 6.5)
	v.SetDefault("game.time_control.per_player", time.Duration(0))
	v.SetDefault("game.time_control.per_move", time.Duration(0))
	v.SetDefault("search.table_size", search.DefaultTableSize)
	for d, p := range search.DefaultProfiles() {
		key := "search.profiles." + string(d)
		v.SetDefault(key+".depth", p.Depth)
		v.SetDefault(key+".time", p.Time)
		v.SetDefault(key+".top_n", p.TopN)
		v.SetDefault(key+".margin", p.Margin)
	}
	for k, depth := range search.DefaultDepthCaps() {
		v.SetDefault("search.depth_caps."+string(k), depth)
	}
	v.SetDefault("results.limit", 1000)
	v.SetDefault("results.archive", "")
	v.SetDefault("development.debug", false)
	v.SetDefault("development.log_level", "info")
}

// Load reads config.yaml from the given directories (default "." and
// "./config"), then BOARDCORE_* environment variables, on top of defaults.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Enable environment variables
	v.SetEnvPrefix("BOARDCORE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be caught by decoding.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := c.SessionDefaults(); err != nil {
		return err
	}
	if _, err := c.profiles(); err != nil {
		return err
	}
	if _, err := c.depthCaps(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.Development.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Development.LogLevel, err)
	}
	return nil
}

// SessionDefaults is the session configuration used when a request leaves
// fields empty.
func (c *Config) SessionDefaults() (session.Config, error) {
	kind, err := engine.ParseKind(c.Game.Variant)
	if err != nil {
		return session.Config{}, err
	}
	d, err := search.ParseDifficulty(c.Game.Difficulty)
	if err != nil {
		return session.Config{}, err
	}
	opts := engine.Options{}
	if kind == engine.Go {
		opts.Size = c.Game.GoSize
		opts.Komi = c.Game.Komi
	}
	return session.Config{
		Variant:     kind,
		Difficulty:  d,
		PlayerSide:  session.Side(strings.ToLower(c.Game.PlayerSide)),
		Opponent:    session.Opponent(strings.ToLower(c.Game.Opponent)),
		Options:     opts,
		TimeControl: c.Game.TimeControl,
	}, nil
}

func (c *Config) profiles() (map[search.Difficulty]search.Profile, error) {
	out := make(map[search.Difficulty]search.Profile, len(c.Search.Profiles))
	for name, p := range c.Search.Profiles {
		d, err := search.ParseDifficulty(name)
		if err != nil {
			return nil, fmt.Errorf("search.profiles: %w", err)
		}
		if p.Depth < 1 {
			return nil, fmt.Errorf("search.profiles.%s: depth must be at least 1", name)
		}
		out[d] = p
	}
	return out, nil
}

func (c *Config) depthCaps() (map[engine.Kind]int, error) {
	out := make(map[engine.Kind]int, len(c.Search.DepthCaps))
	for name, depth := range c.Search.DepthCaps {
		kind, err := engine.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("search.depth_caps: %w", err)
		}
		out[kind] = depth
	}
	return out, nil
}

// SearchOptions turns the search section into searcher options. Call it on
// a validated config.
func (c *Config) SearchOptions() []search.Option {
	profiles, _ := c.profiles()
	caps, _ := c.depthCaps()
	return []search.Option{
		search.WithTableSize(c.Search.TableSize),
		search.WithProfiles(profiles),
		search.WithDepthCaps(caps),
	}
}

// Level is the zerolog level to run at. Debug mode forces debug logging.
func (c *Config) Level() zerolog.Level {
	if c.Development.Debug {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(c.Development.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
