// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек обоих сервисов.
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitConnection        `yaml:"rabbit_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Launcher                `yaml:"launcher"`
	Operators               []Operator `yaml:"operators"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// RabbitConnection структура для подключения к RabbitMQ,
// куда публикуются события для доставки пользователям ботом.
type RabbitConnection struct {
	URLRabbit         string `yaml:"urlrabbit"`
	NotificationQueue string `yaml:"notification_queue" env-default:"user_notifications"`
}

// JWTToken структура для выпуска токенов операторов панели.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"12h"`
}

// Launcher настройки границы API лаунчера. Парольная фраза общего секрета
// задаётся только здесь, в коде её нет.
type Launcher struct {
	APIPassphrase string        `yaml:"api_passphrase"`
	SessionTTL    time.Duration `yaml:"session_ttl" env-default:"24h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"1h"`
}

// Operator — учётная запись оператора панели. Пароль хранится bcrypt-хэшем.
type Operator struct {
	ID           int64  `yaml:"id"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
