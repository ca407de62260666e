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
	"go.cinedex.dev/core/api"
	"go.cinedex.dev/core/codecs"
	"go.cinedex.dev/core/document"
	"go.cinedex.dev/core/kvstore"
	mbp "go.cinedex.dev/core/mainboilerplate"
	"go.cinedex.dev/core/metrics"
	"go.cinedex.dev/core/readcache"
	"go.cinedex.dev/core/server"
	"go.cinedex.dev/core/task"
)

const iniFilename = "cinedex-api.ini"

// Config is the top-level configuration object of the API service.
var Config = new(struct {
	API struct {
		Port uint16 `long:"port" env:"PORT" default:"8000" description:"Service port for HTTP connections"`
	} `group:"API" namespace:"api" env-namespace:"API"`

	Cache struct {
		Backend string        `long:"backend" env:"BACKEND" default:"redis" choice:"redis" choice:"memory" description:"Store of cached responses"`
		TTL     time.Duration `long:"ttl" env:"TTL" default:"300s" description:"Lifetime of cached responses"`
		Size    int           `long:"size" env:"SIZE" default:"10000" description:"Maximum entries of the memory backend"`
		Codec   string        `long:"codec" env:"CODEC" default:"none" choice:"none" choice:"gzip" choice:"snappy" choice:"zstd" description:"Compression of cached values"`
		Prefix  string        `long:"prefix" env:"PREFIX" default:"cache:" description:"Prefix of Redis keys holding cached responses"`
	} `group:"Cache" namespace:"cache" env-namespace:"CACHE"`

	Index struct {
		Movies  string `long:"movies" env:"MOVIES" default:"movies" description:"Name of the films index"`
		Persons string `long:"persons" env:"PERSONS" default:"persons" description:"Name of the persons index"`
		Genres  string `long:"genres" env:"GENRES" default:"genres" description:"Name of the genres index"`
	} `group:"Index" namespace:"index" env-namespace:"INDEX"`

	Elastic     mbp.ElasticConfig     `group:"Elastic" namespace:"elastic" env-namespace:"ELASTIC"`
	Redis       mbp.RedisConfig       `group:"Redis" namespace:"redis" env-namespace:"REDIS"`
	Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
})

type serveAPI struct{}

func (serveAPI) Execute(args []string) error {
	defer mbp.InitDiagnosticsAndRecover(Config.Diagnostics)()
	mbp.InitLog(Config.Log)

	log.WithField("config", Config).Info("starting API")
	prometheus.MustRegister(metrics.APICollectors()...)

	var cfg = readcache.Config{TTL: Config.Cache.TTL, Codec: codecs.Codec(Config.Cache.Codec)}
	mbp.Must(cfg.Codec.Validate(), "invalid cache codec")

	var store kvstore.Store
	if Config.Cache.Backend == "memory" {
		store = kvstore.NewMemoryStore(Config.Cache.Size)
	} else {
		store = kvstore.NewRedisStore(Config.Redis.MustDial(), Config.Cache.Prefix)
	}
	var client = Config.Elastic.MustClient()

	var films = api.Films{Reader: readcache.NewReader[document.Film](store, client, Config.Index.Movies, cfg)}
	var router = api.NewRouter(api.Services{
		Films:   films,
		Genres:  api.Genres{Reader: readcache.NewReader[document.Genre](store, client, Config.Index.Genres, cfg)},
		Persons: api.Persons{Reader: readcache.NewReader[document.Person](store, client, Config.Index.Persons, cfg), Films: films},
	})

	var srv, err = server.New("", Config.API.Port, router)
	mbp.Must(err, "building Server instance")

	var tasks = task.NewGroup(context.Background())
	srv.QueueTasks(tasks)

	var signalCh = make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGTERM, syscall.SIGINT)

	tasks.Queue("watch signal", func() error {
		select {
		case sig := <-signalCh:
			log.WithField("signal", sig).Info("caught signal; draining requests")
			tasks.Cancel()
		case <-tasks.Context().Done():
		}
		return nil
	})
	tasks.GoRun()

	log.WithField("endpoint", srv.Endpoint()).Info("serving API")
	mbp.Must(tasks.Wait(), "API task failed")
	log.Info("goodbye")

	return nil
}

func main() {
	var parser = flags.NewParser(Config, flags.Default)

	_, _ = parser.AddCommand("serve", "Serve the content API", `
Serve the read-only content API under /api/v1, until signaled to exit (via
SIGTERM or SIGINT). Responses are read through a cache of the search indices.
`, &serveAPI{})

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}
