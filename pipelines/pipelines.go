// Package pipelines defines the cinedex ETL pipelines: movies, persons,
// and genres. Each projects one entity kind of the `content` schema into
// the index of the same name.
package pipelines

import (
	"embed"
	"fmt"
	"sort"

	"go.cinedex.dev/core/etl"
	"go.cinedex.dev/core/extract"
	"go.cinedex.dev/core/index"
	"go.cinedex.dev/core/retry"
	"go.cinedex.dev/core/source"
	"go.cinedex.dev/core/transform"
)

// Definition is a named pipeline and the schema of its index.
type Definition struct {
	// Name of the pipeline, which is also the default name of its index.
	Name    string
	Filters []etl.FilterSpec
	// Schema of the pipeline's index.
	Schema []byte

	projection func(x *extract.Extractor, loader *index.Loader) etl.Projection
}

// Pipeline builds the etl.Pipeline of the Definition, which loads into
// |indexName| via |client|.
func (d Definition) Pipeline(x *extract.Extractor, client index.Client, indexName string, policy retry.Policy) etl.Pipeline {
	return etl.Pipeline{
		Name:       d.Name,
		Filters:    d.Filters,
		Projection: d.projection(x, index.NewLoader(client, indexName, policy)),
	}
}

// Movies projects filmworks, with their participants and genres. A film is
// re-projected when it, any of its persons, or any of its genres change.
var Movies = Definition{
	Name: "movies",
	Filters: []etl.FilterSpec{
		{Query: filmworkFilterByFilmwork, Param: "dt", StateKey: "fw_last_filmwork_dt"},
		{Query: filmworkFilterByGenre, Param: "dt", StateKey: "fw_last_genre_dt"},
		{Query: filmworkFilterByPerson, Param: "dt", StateKey: "fw_last_person_dt"},
	},
	Schema: mustSchema("movies"),
	projection: func(x *extract.Extractor, l *index.Loader) etl.Projection {
		return etl.NewProjection[source.FilmworkRecord](x, filmworkCollect, "ids", transform.Filmwork{}, l)
	},
}

// Persons projects persons with their filmworks grouped by role.
var Persons = Definition{
	Name: "persons",
	Filters: []etl.FilterSpec{
		{Query: personFilter, Param: "dt", StateKey: "persons_last_dt"},
	},
	Schema: mustSchema("persons"),
	projection: func(x *extract.Extractor, l *index.Loader) etl.Projection {
		return etl.NewProjection[source.PersonRecord](x, personCollect, "ids", transform.Person{}, l)
	},
}

// Genres projects genres.
var Genres = Definition{
	Name: "genres",
	Filters: []etl.FilterSpec{
		{Query: genreFilter, Param: "dt", StateKey: "genres_last_dt"},
	},
	Schema: mustSchema("genres"),
	projection: func(x *extract.Extractor, l *index.Loader) etl.Projection {
		return etl.NewProjection[source.GenreRecord](x, genreCollect, "ids", transform.Genre{}, l)
	},
}

// All Definitions, in the order their pipelines run.
var All = []Definition{Movies, Persons, Genres}

// Select returns the Definitions of |names|, or All if |names| is empty.
func Select(names []string) ([]Definition, error) {
	if len(names) == 0 {
		return All, nil
	}
	var want = make(map[string]bool)
	for _, n := range names {
		want[n] = true
	}

	var out []Definition
	for _, d := range All {
		if want[d.Name] {
			out = append(out, d)
			delete(want, d.Name)
		}
	}
	if len(want) != 0 {
		var unknown []string
		for n := range want {
			unknown = append(unknown, n)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown pipelines: %v", unknown)
	}
	return out, nil
}

// StateKeys returns the watermark state keys of all Definitions.
func StateKeys() []string {
	var out []string
	for _, d := range All {
		for _, f := range d.Filters {
			out = append(out, f.StateKey)
		}
	}
	return out
}

//go:embed schemas/*.json
var schemas embed.FS

func mustSchema(name string) []byte {
	var b, err = schemas.ReadFile("schemas/" + name + ".json")
	if err != nil {
		panic(err.Error())
	}
	return b
}
