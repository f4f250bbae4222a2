package config

import (
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	RedisHost     string        `env:"REDIS_HOST"      envDefault:"localhost"`
	RedisPort     uint16        `env:"REDIS_PORT"      envDefault:"6379" validate:"min=1000,max=65535"`
	SpaceCacheTTL time.Duration `env:"SPACE_CACHE_TTL" envDefault:"60s"  validate:"min=0"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"metaverse"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"metaverse"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"metaverse"`
	PostgresMigrate  bool   `env:"POSTGRES_MIGRATE"  envDefault:"true"`

	JWTSecret string `env:"JWT_SECRET,required" validate:"min=8"`

	WsJoinTimeout    time.Duration `env:"WS_JOIN_TIMEOUT"    envDefault:"5s"   validate:"gt=0"`
	WsReadLimit      int64         `env:"WS_READ_LIMIT"      envDefault:"4096" validate:"min=128"`
	WsSendBuffer     int           `env:"WS_SEND_BUFFER"     envDefault:"256"  validate:"min=1"`
	WsMsgRate        float64       `env:"WS_MSG_RATE"        envDefault:"30"   validate:"min=0"`
	WsMsgBurst       int           `env:"WS_MSG_BURST"       envDefault:"60"   validate:"min=0"`
	WsAllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
	LogProduction  bool   `env:"LOG_PRODUCTION"   envDefault:"false"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// PostgresURL is the DSN shared by the pool and the migrator.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDb,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
