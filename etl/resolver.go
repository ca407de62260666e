package etl

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/extract"
	"go.cinedex.dev/core/source"
	"go.cinedex.dev/core/watermark"
)

// FilterSpec is a query which selects the (id, modified) rows of entities
// changed since a watermark. The watermark is bound to the query's named
// parameter Param, and is tracked under StateKey.
type FilterSpec struct {
	Query    string
	Param    string
	StateKey string
}

// ChangeSource runs the query of a FilterSpec, returning rows having a
// modification time strictly after |since|.
type ChangeSource interface {
	Changed(ctx context.Context, spec FilterSpec, since time.Time) ([]source.ChangedRow, error)
}

// ExtractChanges is a ChangeSource which runs FilterSpecs with an Extractor.
type ExtractChanges struct {
	Extractor *extract.Extractor
}

// Changed runs |spec| with |since| bound to its parameter.
func (c ExtractChanges) Changed(ctx context.Context, spec FilterSpec, since time.Time) ([]source.ChangedRow, error) {
	return extract.All[source.ChangedRow](ctx, c.Extractor, spec.Query, extract.Params{spec.Param: since})
}

// Resolver computes the set of entity identifiers changed since the last
// resolution, advancing the watermark of each filter as it goes.
type Resolver struct {
	changes ChangeSource
	marks   *watermark.Store
}

// NewResolver returns a Resolver of |changes| which tracks watermarks in |marks|.
func NewResolver(changes ChangeSource, marks *watermark.Store) *Resolver {
	return &Resolver{changes: changes, marks: marks}
}

// Resolve runs each filter of |specs| in order and returns the distinct
// identifiers of all returned rows, in order of first appearance.
//
// A filter which returns rows has its watermark advanced to the latest
// modification time among them, immediately after its rows are read. A
// filter which returns no rows leaves its watermark untouched.
//
// If a filter fails, Resolve returns the identifiers gathered by prior
// filters along with the error. If a watermark can't be persisted, that
// filter's identifiers are also returned: they'll be selected again on the
// next resolution, as its watermark didn't advance.
func (r *Resolver) Resolve(ctx context.Context, specs []FilterSpec) ([]string, error) {
	var ids []string
	var seen = make(map[string]struct{})

	for _, spec := range specs {
		var since, _ = r.marks.Get(spec.StateKey)

		var rows, err = r.changes.Changed(ctx, spec, since)
		if err != nil {
			return ids, errors.WithMessagef(err, "filter %s", spec.StateKey)
		} else if len(rows) == 0 {
			continue
		}

		var latest time.Time
		for _, row := range rows {
			if _, ok := seen[row.ID]; !ok {
				seen[row.ID] = struct{}{}
				ids = append(ids, row.ID)
			}
			if row.Modified.After(latest) {
				latest = row.Modified
			}
		}

		log.WithFields(log.Fields{
			"stateKey":  spec.StateKey,
			"rows":      len(rows),
			"watermark": latest,
		}).Debug("resolved filter")

		if err = r.marks.Set(ctx, spec.StateKey, latest); err != nil {
			return ids, errors.WithMessagef(err, "filter %s", spec.StateKey)
		}
	}
	return ids, nil
}
