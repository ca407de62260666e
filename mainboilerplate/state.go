package mainboilerplate

import (
	"github.com/spf13/afero"
	"go.cinedex.dev/core/kvstore"
	"go.cinedex.dev/core/watermark"
)

// StateConfig configures where ETL watermarks are kept.
type StateConfig struct {
	Backend string `long:"backend" env:"BACKEND" default:"redis" choice:"redis" choice:"etcd" choice:"file" description:"Store of ETL watermarks"`
	Key     string `long:"key" env:"KEY" default:"etl_state" description:"Key under which watermarks are stored"`
	Clean   bool   `long:"clean" env:"CLEAN" description:"Delete stored watermarks at startup, re-projecting all records"`
	Dir     string `long:"dir" env:"DIR" default:"./state" description:"Directory of the file backend"`
}

// MustStore builds the kvstore.Store of the configured backend. |redisCfg|
// and |etcdCfg| are dialed only if their backend is selected.
func (c *StateConfig) MustStore(redisCfg *RedisConfig, etcdCfg *EtcdConfig) kvstore.Store {
	switch c.Backend {
	case "etcd":
		return kvstore.NewEtcdStore(etcdCfg.MustDial(), etcdCfg.Prefix)
	case "file":
		var store, err = kvstore.NewFileStore(afero.NewOsFs(), c.Dir)
		Must(err, "failed to open state directory", "dir", c.Dir)
		return store
	default:
		return kvstore.NewRedisStore(redisCfg.MustDial(), "")
	}
}

// Key of watermark state, defaulted if empty.
func (c *StateConfig) StateKey() string {
	if c.Key == "" {
		return watermark.DefaultKey
	}
	return c.Key
}
