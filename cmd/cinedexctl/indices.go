package main

import (
	"context"

	log "github.com/sirupsen/logrus"
	mbp "go.cinedex.dev/core/mainboilerplate"
	"go.cinedex.dev/core/pipelines"
)

type cmdIndicesEnsure struct {
	Elastic  mbp.ElasticConfig `group:"Elastic" namespace:"elastic" env-namespace:"ELASTIC"`
	Pipeline []string          `long:"pipeline" description:"Pipeline whose index is ensured. Repeat for multiple pipelines. If unset, all indices are ensured"`
}

func (cmd *cmdIndicesEnsure) Execute([]string) error {
	startup()

	var defs, err = pipelines.Select(cmd.Pipeline)
	mbp.Must(err, "failed to select pipelines")

	var client = cmd.Elastic.MustClient()
	for _, d := range defs {
		mbp.Must(client.EnsureIndex(context.Background(), d.Name, d.Schema, cmd.Elastic.Recreate),
			"failed to ensure index", "index", d.Name)
		log.WithFields(log.Fields{"index": d.Name, "recreate": cmd.Elastic.Recreate}).Info("ensured index")
	}
	return nil
}
