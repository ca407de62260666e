package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/etl"
	"go.cinedex.dev/core/extract"
	mbp "go.cinedex.dev/core/mainboilerplate"
	"go.cinedex.dev/core/metrics"
	"go.cinedex.dev/core/pipelines"
	"go.cinedex.dev/core/task"
	"go.cinedex.dev/core/watermark"
)

const iniFilename = "cinedex-etl.ini"

// Config is the top-level configuration object of the ETL service.
var Config = new(struct {
	ETL struct {
		Interval  time.Duration `long:"interval" env:"INTERVAL" default:"5s" description:"Delay between ETL cycles"`
		ChunkSize int           `long:"chunk-size" env:"CHUNK_SIZE" default:"100" description:"Number of records extracted and loaded per batch"`
		Parallel  bool          `long:"parallel" env:"PARALLEL" description:"Run the pipelines of a cycle concurrently"`
		Pipeline  []string      `long:"pipeline" env:"PIPELINE" env-delim:"," description:"Pipeline to run. Repeat for multiple pipelines. If unset, all pipelines run"`
	} `group:"ETL" namespace:"etl" env-namespace:"ETL"`

	Index struct {
		Movies  string `long:"movies" env:"MOVIES" default:"movies" description:"Name of the films index"`
		Persons string `long:"persons" env:"PERSONS" default:"persons" description:"Name of the persons index"`
		Genres  string `long:"genres" env:"GENRES" default:"genres" description:"Name of the genres index"`
	} `group:"Index" namespace:"index" env-namespace:"INDEX"`

	Postgres    mbp.PostgresConfig    `group:"Postgres" namespace:"postgres" env-namespace:"POSTGRES"`
	Elastic     mbp.ElasticConfig     `group:"Elastic" namespace:"elastic" env-namespace:"ELASTIC"`
	State       mbp.StateConfig       `group:"State" namespace:"state" env-namespace:"STATE"`
	Redis       mbp.RedisConfig       `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
	Etcd        mbp.EtcdConfig        `group:"Etcd" namespace:"etcd" env-namespace:"ETCD"`
	Retry       mbp.RetryConfig       `group:"Retry" namespace:"retry" env-namespace:"RETRY"`
	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

func indexName(d pipelines.Definition) string {
	switch d.Name {
	case pipelines.Movies.Name:
		return Config.Index.Movies
	case pipelines.Persons.Name:
		return Config.Index.Persons
	case pipelines.Genres.Name:
		return Config.Index.Genres
	}
	return d.Name
}

type serveETL struct{}

func (serveETL) Execute(args []string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	mbp.InitLog(Config.Log)

	log.WithField("config", Config).Info("starting ETL")
	prometheus.MustRegister(metrics.ETLCollectors()...)

	var defs, err = pipelines.Select(Config.ETL.Pipeline)
	mbp.Must(err, "failed to select pipelines")

	var policy = Config.Retry.Policy()
	var ctx = context.Background()

	var marks = watermark.NewStore(
		Config.State.MustStore(&Config.Redis, &Config.Etcd), Config.State.StateKey(), policy)
	mbp.Must(marks.Load(ctx, Config.State.Clean), "failed to load watermarks")

	var client = Config.Elastic.MustClient()
	var x = extract.New(Config.Postgres.MustOpen(), policy)

	var built []etl.Pipeline
	for _, d := range defs {
		var name = indexName(d)
		mbp.Must(client.EnsureIndex(ctx, name, d.Schema, Config.Elastic.Recreate),
			"failed to ensure index", "index", name)
		built = append(built, d.Pipeline(x, client, name, policy))
	}

	var runner = etl.NewRunner(etl.RunnerConfig{
		Interval:  Config.ETL.Interval,
		BatchSize: Config.ETL.ChunkSize,
		Parallel:  Config.ETL.Parallel,
	}, etl.NewResolver(etl.ExtractChanges{Extractor: x}, marks), built...)

	var tasks = task.NewGroup(ctx)
	tasks.Queue("runner.Run", func() error { return runner.Run(tasks.Context()) })

	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	tasks.Queue("watch signal", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Info("caught signal; finishing current cycle")
			tasks.Cancel()
		case <-tasks.Context().Done():
		}
		return nil
	})
	tasks.GoRun()

	mbp.Must(tasks.Wait(), "ETL task failed")
	log.Info("goodbye")

	return nil
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	_, _ = parser.AddCommand("serve", "Serve the ETL process", `
Serve the ETL process with the provided configuration, until signaled to
exit (via SIGTERM or SIGINT). Each cycle projects changed content records
into the search indices. Upon a signal, the process completes its current
cycle before exiting.
`, &serveETL{})

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}
