package config

import (
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string        `env:"ADDR,default=:8080"`
	DBPath         string        `env:"DB_PATH,default=chatline.db"`
	UploadDir      string        `env:"UPLOAD_DIR,default=uploads"`
	JWTSecret      string        `env:"JWT_SECRET,required=true"`
	TokenDuration  time.Duration `env:"TOKEN_DURATION,default=30m"`
	LogLevel       string        `env:"LOG_LEVEL,default=info"`
	MaxMessageSize int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	SendBufferSize int           `env:"SEND_BUFFER_SIZE,default=256"`
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, err
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 256
	}
	return &cfg, nil
}
