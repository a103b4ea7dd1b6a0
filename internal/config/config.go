package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Store    StoreConfig    `mapstructure:"store"`
	Identity IdentityConfig `mapstructure:"identity"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // memory, db, redis
}

type IdentityConfig struct {
	Mode   string `mapstructure:"mode"` // hmac, legacy
	Secret string `mapstructure:"secret"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type GameConfig struct {
	TurnSeconds         int `mapstructure:"turnSeconds"`
	IntermissionSeconds int `mapstructure:"intermissionSeconds"`
	StaleSeconds        int `mapstructure:"staleSeconds"`
	PollIntervalMs      int `mapstructure:"pollIntervalMs"`
	SweepWorkers        int `mapstructure:"sweepWorkers"`
	LockTimeoutMs       int `mapstructure:"lockTimeoutMs"`
	DeckCount           int `mapstructure:"deckCount"`
	ShuffleAt           int `mapstructure:"shuffleAt"`
}

type WalletConfig struct {
	StartingBalance int64 `mapstructure:"startingBalance"`
	TopupAmount     int64 `mapstructure:"topupAmount"`
	TopupSeconds    int   `mapstructure:"topupSeconds"`
}

var GlobalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("store.backend", "memory")
	v.SetDefault("identity.mode", "hmac")
	v.SetDefault("jwt.expire", 72)
	v.SetDefault("game.turnSeconds", 15)
	v.SetDefault("game.intermissionSeconds", 3)
	v.SetDefault("game.staleSeconds", 25)
	v.SetDefault("game.pollIntervalMs", 2000)
	v.SetDefault("game.sweepWorkers", 8)
	v.SetDefault("game.lockTimeoutMs", 3000)
	v.SetDefault("game.deckCount", 4)
	v.SetDefault("game.shuffleAt", 15)
	v.SetDefault("wallet.startingBalance", 1000)
	v.SetDefault("wallet.topupAmount", 10)
	v.SetDefault("wallet.topupSeconds", 60)
}

// Load reads path into a Config. Environment variables prefixed with
// BLACKJACK_ override file values (BLACKJACK_STORE_BACKEND=redis).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("blackjack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadConfig(path string) {
	cfg, err := Load(path)
	if err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}
	GlobalConfig = cfg
}
