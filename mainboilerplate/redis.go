package mainboilerplate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// RedisConfig configures a Redis client.
type RedisConfig struct {
	Address     []string      `long:"address" env:"ADDRESS" env-delim:"," default:"localhost:6379" description:"Redis address. Repeat for a cluster"`
	Password    Secret        `long:"password" env:"PASSWORD" default:"" description:"Redis password"`
	DB          int           `long:"db" env:"DB" default:"0" description:"Redis logical database"`
	DialTimeout time.Duration `long:"dial-timeout" env:"DIAL_TIMEOUT" default:"5s" description:"Timeout of Redis dials"`
}

// MustDial builds a Redis client and pings it.
func (c *RedisConfig) MustDial() redis.UniversalClient {
	var client = redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:       c.Address,
		Password:    string(c.Password),
		DB:          c.DB,
		DialTimeout: c.DialTimeout,
	})

	var ctx, cancel = context.WithTimeout(context.Background(), c.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.WithFields(log.Fields{"err": err, "addr": c.Address}).Warn("initial Redis ping failed")
	}
	return client
}
