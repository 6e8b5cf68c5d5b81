package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

type NATSConfig struct {
	Host   string       `mapstructure:"host"`
	Port   int          `mapstructure:"port"`
	Stream StreamConfig `mapstructure:"stream"`
}

type StreamConfig struct {
	Name     string   `mapstructure:"name"`
	Subjects []string `mapstructure:"subjects"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type TemporalConfig struct {
	HostPort  string        `mapstructure:"hostport"`
	TaskQueue string        `mapstructure:"taskqueue"`
	MaxSleep  time.Duration `mapstructure:"maxsleep"`
}

type ChainConfig struct {
	Genesis       string        `mapstructure:"genesis"`
	BlockInterval time.Duration `mapstructure:"blockinterval"`
	StartHeight   uint64        `mapstructure:"startheight"`
}

type GameConfig struct {
	Admin             string `mapstructure:"admin"`
	MinBet            uint64 `mapstructure:"minbet"`
	MoveTimeoutBlocks uint64 `mapstructure:"movetimeoutblocks"`
	PlatformFeeBps    uint64 `mapstructure:"platformfeebps"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Server   ServerConfig   `mapstructure:"server"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Game     GameConfig     `mapstructure:"game"`
}

// GenesisTime parses Chain.Genesis (RFC3339). An empty value means the
// Unix epoch.
func (c ChainConfig) GenesisTime() (time.Time, error) {
	if c.Genesis == "" {
		return time.Unix(0, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, c.Genesis)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid chain.genesis %q: %w", c.Genesis, err)
	}
	return t, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "stackstactoe")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "stackstactoe.db")

	v.SetDefault("nats.host", "localhost")
	v.SetDefault("nats.port", 4222)
	v.SetDefault("nats.stream.name", "STACKSTACTOE")
	v.SetDefault("nats.stream.subjects", []string{"stackstactoe.>"})

	v.SetDefault("server.port", "8080")

	v.SetDefault("temporal.hostport", "localhost:7233")
	v.SetDefault("temporal.taskqueue", "stackstactoe-task-queue")
	v.SetDefault("temporal.maxsleep", time.Hour)

	v.SetDefault("chain.genesis", "")
	v.SetDefault("chain.blockinterval", 600*time.Second)
	v.SetDefault("chain.startheight", 0)

	v.SetDefault("game.admin", "")
	v.SetDefault("game.minbet", 1)
	v.SetDefault("game.movetimeoutblocks", 144)
	v.SetDefault("game.platformfeebps", 0)
}

// LoadConfig reads config.yaml from the working directory or
// /etc/stackstactoe, then applies STACKSTACTOE_* environment overrides.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom("")
}

// LoadConfigFrom is LoadConfig with an explicit config file. A missing
// config.yaml is not an error when no path is given; defaults apply.
func LoadConfigFrom(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("STACKSTACTOE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/stackstactoe")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}
