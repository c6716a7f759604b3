package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap/zapcore"
)

// Backends de almacenamiento soportados.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config centraliza la configuración del cliente de chat.
type Config struct {
	HTTPPort      string   `env:"HTTP_PORT" envDefault:"8080"`
	CompletionURL string   `env:"MOOGLA_COMPLETION_URL" envDefault:"http://localhost:11434/v1/chat/completions"`
	Model         string   `env:"MOOGLA_MODEL" envDefault:"gpt-3.5-turbo"`
	Stream        bool     `env:"MOOGLA_STREAM" envDefault:"true"`
	StoreBackend  string   `env:"MOOGLA_STORE" envDefault:"file"`
	StorePath     string   `env:"MOOGLA_STORE_PATH"`
	SQLitePath    string   `env:"MOOGLA_SQLITE_PATH"`
	DatabaseURL   string   `env:"DATABASE_URL"`
	RedisAddr     string   `env:"REDIS_ADDR"`
	RedisPassword string   `env:"REDIS_PASSWORD"`
	RedisDB       int      `env:"REDIS_DB" envDefault:"0"`
	PluginFile    string   `env:"MOOGLA_PLUGIN_FILE"`
	LogLevel      string   `env:"MOOGLA_LOG_LEVEL" envDefault:"info"`
	CORSOrigins   []string `env:"MOOGLA_CORS_ORIGINS" envSeparator:","`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	return &cfg, nil
}

// Level traduce MOOGLA_LOG_LEVEL a un nivel de zap; valores desconocidos caen en info.
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// ResolveStorePath devuelve la ruta del archivo JSON de historial.
func (c *Config) ResolveStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	return filepath.Join(cacheDir(), "chat.json")
}

// ResolveSQLitePath devuelve la ruta de la base SQLite.
func (c *Config) ResolveSQLitePath() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(cacheDir(), "chat.db")
}

func cacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".cache", "moogla")
}
