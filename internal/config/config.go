package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"event-pipeline"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	Host           string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port           string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password       string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName         string `yaml:"dbname" env:"POSTGRES_DB" env-default:"events_db"`
	MigrationsPath string `yaml:"migrations_path" env:"POSTGRES_MIGRATIONS_PATH" env-default:"migrations"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers       []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	UserTopic     string        `yaml:"user_topic" env:"KAFKA_USER_TOPIC" env-default:"user-events"`
	BusinessTopic string        `yaml:"business_topic" env:"KAFKA_BUSINESS_TOPIC" env-default:"business-events"`
	SystemTopic   string        `yaml:"system_topic" env:"KAFKA_SYSTEM_TOPIC" env-default:"system-events"`
	GroupID       string        `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"event-pipeline-consumer"`
	StartOffset   string        `yaml:"start_offset" env:"KAFKA_START_OFFSET" env-default:"earliest"`
	SendTimeout   time.Duration `yaml:"send_timeout" env:"KAFKA_SEND_TIMEOUT" env-default:"10s"`
}

func New() (*Config, error) {
	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else {
		// Allow env vars to override config file
		cleanenv.ReadEnv(cfg)
	}

	return cfg, nil
}
