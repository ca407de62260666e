package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/kvstore"
	mbp "go.cinedex.dev/core/mainboilerplate"
)

type cmdCacheFlush struct {
	Cache struct {
		Prefix string `long:"prefix" env:"PREFIX" default:"cache:" description:"Prefix of Redis keys holding cached responses"`
	} `group:"Cache" namespace:"cache" env-namespace:"CACHE"`
	Redis mbp.RedisConfig `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
}

func (cmd *cmdCacheFlush) Execute([]string) error {
	startup()

	var store = kvstore.NewRedisStore(cmd.Redis.MustDial(), cmd.Cache.Prefix)
	mbp.Must(store.FlushAll(context.Background()), "failed to flush cache")
	log.WithFields(log.Fields{"addr": cmd.Redis.Address, "prefix": cmd.Cache.Prefix}).Info("flushed cache")
	return nil
}
