package etl

import (
	"context"

	"go.cinedex.dev/core/extract"
	"go.cinedex.dev/core/index"
	"go.cinedex.dev/core/transform"
)

// State of a pipeline within its cycle.
type State int

const (
	// Idle pipelines are between cycles.
	Idle State = iota
	// Resolving pipelines are running their filters.
	Resolving
	// Extracting pipelines are reading a batch of changed records.
	Extracting
	// Loading pipelines are transforming and loading a batch of documents.
	Loading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Resolving:
		return "RESOLVING_CHANGES"
	case Extracting:
		return "EXTRACTING"
	case Loading:
		return "TRANSFORMING_LOADING"
	default:
		return "UNKNOWN"
	}
}

// Pipeline projects one entity kind of the relational catalog into an index.
type Pipeline struct {
	// Name of the Pipeline, used in logging and metrics.
	Name string
	// Filters which select changed entities of the Pipeline.
	Filters []FilterSpec
	// Projection of changed entities into the index.
	Projection Projection
}

// Projection extracts the records of changed identifiers, and transforms
// and loads them into an index.
type Projection interface {
	// Project records of |ids| in batches of |batchSize|, calling |observe|
	// as it moves between the Extracting and Loading states. It returns the
	// number of records extracted and documents loaded.
	Project(ctx context.Context, ids []string, batchSize int, observe func(State)) (extracted, loaded int, err error)
}

// IDsPerQuery bounds the identifiers bound to one run of a collect query.
// Larger change sets are collected in successive runs, keeping each query
// within the bind parameter limits of database drivers.
const IDsPerQuery = 10000

// NewProjection returns a Projection which runs |collect| with the changed
// identifiers bound to its |idsParam| parameter, transforms each record
// with |t|, and loads the results with |loader|.
func NewProjection[R any](x *extract.Extractor, collect, idsParam string, t transform.Transformer[R], loader *index.Loader) Projection {
	return &projection[R]{x: x, collect: collect, idsParam: idsParam, t: t, loader: loader}
}

type projection[R any] struct {
	x        *extract.Extractor
	collect  string
	idsParam string
	t        transform.Transformer[R]
	loader   *index.Loader
}

func (p *projection[R]) Project(ctx context.Context, ids []string, batchSize int, observe func(State)) (int, int, error) {
	var extracted, loaded int
	observe(Extracting)

	for len(ids) != 0 {
		var chunk = ids
		if len(chunk) > IDsPerQuery {
			chunk = chunk[:IDsPerQuery]
		}
		ids = ids[len(chunk):]

		var e, l, err = p.projectChunk(ctx, chunk, batchSize, observe)
		extracted, loaded = extracted+e, loaded+l

		if err != nil {
			return extracted, loaded, err
		}
	}
	return extracted, loaded, nil
}

// projectChunk collects and loads records of |ids| with a single query.
// Counts reflect only the final attempt of the query.
func (p *projection[R]) projectChunk(ctx context.Context, ids []string, batchSize int, observe func(State)) (extracted, loaded int, err error) {
	var current int

	err = extract.ForEachBatch[R](ctx, p.x, p.collect, extract.Params{p.idsParam: ids}, batchSize,
		func(attempt int, records []R) error {
			if attempt != current {
				current, extracted, loaded = attempt, 0, 0
			}
			extracted += len(records)
			observe(Loading)

			var docs = make([]index.Document, len(records))
			for i, r := range records {
				docs[i] = p.t.Transform(r)
			}
			var n, err = p.loader.Load(ctx, docs)
			loaded += n

			observe(Extracting)
			return err
		})
	return extracted, loaded, err
}
