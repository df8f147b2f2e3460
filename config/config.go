package config

import (
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/log"
)

type Config struct {
	HttpPort      int    `envconfig:"HTTP_PORT" required:"true"`
	RedisAddr     string `envconfig:"REDIS_ADDR" required:"true"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" required:"true"`
	RedisDB       int    `envconfig:"REDIS_DB" required:"false" default:"0"`
	MaxWorkers    int    `envconfig:"MAX_WORKERS" required:"false" default:"16"`

	// Heartbeat: a ping goes out every PingInterval; a connection that
	// produces no frame (pong included) within PongTimeout is dead.
	PingInterval time.Duration `envconfig:"PING_INTERVAL" required:"false" default:"30s"`
	PongTimeout  time.Duration `envconfig:"PONG_TIMEOUT" required:"false" default:"60s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" required:"false" default:"10s"`

	// TTL on room metadata mirrored in redis.
	RoomTTL time.Duration `envconfig:"ROOM_TTL" required:"false" default:"15m"`
}

var (
	c    Config
	once sync.Once
)

func Get() *Config {
	once.Do(func() {
		err := envconfig.Process("", &c)
		if err != nil {
			log.Fatal(err)
		}
		if c.PingInterval >= c.PongTimeout {
			log.Fatalf("PING_INTERVAL (%s) must be shorter than PONG_TIMEOUT (%s)", c.PingInterval, c.PongTimeout)
		}
	})
	return &c
}
