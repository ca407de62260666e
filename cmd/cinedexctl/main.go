package main

import (
	"github.com/jessevdk/go-flags"
	mbp "go.cinedex.dev/core/mainboilerplate"
)

const iniFilename = "cinedexctl.ini"

var baseCfg = new(struct {
	Log mbp.LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
})

func mustAddCmd(cmd interface {
	AddCommand(string, string, string, interface{}) (*flags.Command, error)
}, name, short, long string, cfg interface{}) *flags.Command {
	var out, err = cmd.AddCommand(name, short, long, cfg)
	mbp.Must(err, "failed to add command")
	return out
}

func startup() {
	mbp.InitLog(baseCfg.Log)
}

func main() {
	var parser = flags.NewParser(baseCfg, flags.Default)
	parser.LongDescription = `cinedexctl is a tool for administering the cinedex ETL and API.

See --help pages of each sub-command for documentation and usage examples.
Optionally configure cinedexctl with a '` + iniFilename + `' file in the current
working directory, or with '~/.config/cinedex/` + iniFilename + `'. Use the
'print-config' sub-command to inspect the tool's current configuration.
`
	var marks = mustAddCmd(parser, "watermarks", "Inspect or reset ETL watermarks", `
Watermarks record, per change filter, the latest modification time projected
into the search indices.
`, &struct{}{})
	mustAddCmd(marks, "list", "List watermarks", `
List stored watermarks and their age.

Results can be output in a variety of --format options:
table: Prints as a table.
yaml:  Prints a YAML mapping of state key to timestamp.
json:  Prints a JSON object of state key to timestamp.
`, &cmdWatermarksList{})
	mustAddCmd(marks, "reset", "Reset watermarks", `
Reset stored watermarks, so that the next ETL cycle re-projects all records
of their filters. Use --key to reset only specific state keys, eg:

>    cinedexctl watermarks reset --key fw_last_genre_dt --key genres_last_dt
`, &cmdWatermarksReset{})

	var indices = mustAddCmd(parser, "indices", "Manage search indices", `
Search indices hold the documents projected by ETL pipelines.
`, &struct{}{})
	mustAddCmd(indices, "ensure", "Create missing indices", `
Create the index of each selected pipeline with its schema, if it doesn't
already exist. With --recreate, existing indices are deleted first.
`, &cmdIndicesEnsure{})

	var cache = mustAddCmd(parser, "cache", "Manage the API response cache", `
The API caches documents and list results for a bounded time.
`, &struct{}{})
	mustAddCmd(cache, "flush", "Flush cached responses", `
Remove all entries of the API response cache. Only keys under --cache.prefix
are removed; ETL watermarks sharing the Redis database are left in place.
`, &cmdCacheFlush{})

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.MustParseConfig(parser, iniFilename)
}
