package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	mbp "go.cinedex.dev/core/mainboilerplate"
	"go.cinedex.dev/core/pipelines"
	"go.cinedex.dev/core/retry"
	"go.cinedex.dev/core/watermark"
	"gopkg.in/yaml.v2"
)

type stateConfig struct {
	State mbp.StateConfig `group:"State" namespace:"state" env-namespace:"STATE"`
	Redis mbp.RedisConfig `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
	Etcd  mbp.EtcdConfig  `group:"Etcd" namespace:"etcd" env-namespace:"ETCD"`
}

func (cfg *stateConfig) mustLoad(ctx context.Context) *watermark.Store {
	var policy = retry.DefaultPolicy
	policy.MaxAttempts = 3

	var marks = watermark.NewStore(
		cfg.State.MustStore(&cfg.Redis, &cfg.Etcd), cfg.State.StateKey(), policy)
	mbp.Must(marks.Load(ctx, false), "failed to load watermarks")
	return marks
}

type cmdWatermarksList struct {
	stateConfig
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" choice:"json" default:"table" description:"Output format"`
}

func (cmd *cmdWatermarksList) Execute([]string) error {
	startup()

	var marks = cmd.mustLoad(context.Background()).Marks()
	var byKey = make(map[string]string, len(marks))
	for _, m := range marks {
		byKey[m.StateKey] = m.Watermark.Format(time.RFC3339Nano)
	}

	switch cmd.Format {
	case "table":
		var table = tablewriter.NewWriter(os.Stdout)
		table.Header("Key", "Watermark", "Age")
		for _, m := range marks {
			mbp.Must(table.Append([]string{m.StateKey, byKey[m.StateKey], humanize.Time(m.Watermark)}), "failed to append row")
		}
		mbp.Must(table.Render(), "failed to render table")
	case "yaml":
		var b, err = yaml.Marshal(byKey)
		mbp.Must(err, "failed to encode to yaml")
		_, _ = os.Stdout.Write(b)
	case "json":
		var enc = json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		mbp.Must(enc.Encode(byKey), "failed to encode to json")
	}
	return nil
}

type cmdWatermarksReset struct {
	stateConfig
	Key []string `long:"key" description:"State key to reset. Repeat for multiple keys. If unset, all watermarks are reset"`
}

func (cmd *cmdWatermarksReset) Execute([]string) error {
	startup()

	var known = make(map[string]bool)
	for _, k := range pipelines.StateKeys() {
		known[k] = true
	}
	for _, k := range cmd.Key {
		if !known[k] {
			log.WithField("key", k).Warn("key isn't a state key of any pipeline")
		}
	}

	var ctx = context.Background()
	mbp.Must(cmd.mustLoad(ctx).Reset(ctx, cmd.Key...), "failed to reset watermarks")
	log.WithField("keys", cmd.Key).Info("reset watermarks")
	return nil
}
