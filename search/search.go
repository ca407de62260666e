// Package search builds index query bodies, sorts, and pages.
package search

import (
	"fmt"
	"strings"
)

// Body is a JSON query body, or a fragment of one. Bodies serialize with
// keys sorted at every depth, giving each Body a canonical encoding.
type Body map[string]interface{}

// MatchAll matches every document.
func MatchAll() Body {
	return Body{"match_all": Body{}}
}

// MultiMatch matches |text| against |fields|, which may carry "^N" boosts.
func MultiMatch(text string, fields ...string) Body {
	return Body{"multi_match": Body{
		"query":     text,
		"fields":    fields,
		"fuzziness": "AUTO",
	}}
}

// Match matches |text| against |field|.
func Match(field, text string) Body {
	return Body{"match": Body{field: Body{
		"query":     text,
		"fuzziness": "AUTO",
	}}}
}

// NestedTerms matches documents having a nested object under |path| whose
// |field| is one of |values|.
func NestedTerms(path, field string, values ...string) Body {
	return Body{"nested": Body{
		"path":  path,
		"query": Body{"terms": Body{path + "." + field: values}},
	}}
}

// IDs matches documents having one of |ids|.
func IDs(ids ...string) Body {
	return Body{"ids": Body{"values": ids}}
}

// Bool matches documents matching all of |must| and none of |mustNot|.
func Bool(must []Body, mustNot []Body) Body {
	var b = Body{}
	if len(must) != 0 {
		b["must"] = must
	}
	if len(mustNot) != 0 {
		b["must_not"] = mustNot
	}
	return Body{"bool": b}
}

// Request composes a request Body of |query| ordered by |sorts|.
func Request(query Body, sorts ...Sort) Body {
	var b = Body{"query": query}
	if len(sorts) != 0 {
		var s = make([]Body, len(sorts))
		for i, sort := range sorts {
			s[i] = sort.Body()
		}
		b["sort"] = s
	}
	return b
}

// Sort is an ordering on an indexed field.
type Sort struct {
	Field string
	Desc  bool
}

// Body returns the Sort as a request fragment.
func (s Sort) Body() Body {
	var order = "asc"
	if s.Desc {
		order = "desc"
	}
	return Body{s.Field: Body{"order": order}}
}

// ParseSort parses |raw| of form "field" or "-field", where a leading "-"
// orders descending. |fields| maps each sortable field name to the indexed
// field it orders on.
func ParseSort(raw string, fields map[string]string) (Sort, error) {
	var name = strings.TrimPrefix(raw, "-")
	var field, ok = fields[name]
	if !ok {
		return Sort{}, fmt.Errorf("unsupported sort field %q", name)
	}
	return Sort{Field: field, Desc: name != raw}, nil
}

// Page bounds.
const (
	MinPage = 1
	MaxPage = 10000
	// MaxResultWindow is the greatest offset plus size the index serves.
	MaxResultWindow = 10000

	DefaultPageSize   = 10
	DefaultPageNumber = 1
)

// Page is a 1-indexed page of results.
type Page struct {
	Number int
	Size   int
}

// Validate returns an error if the Page is out of bounds.
func (p Page) Validate() error {
	if p.Number < MinPage || p.Number > MaxPage {
		return fmt.Errorf("page number must be in [%d, %d]", MinPage, MaxPage)
	} else if p.Size < MinPage || p.Size > MaxPage {
		return fmt.Errorf("page size must be in [%d, %d]", MinPage, MaxPage)
	}
	return nil
}

// Window returns the offset and size of the Page within the index's
// result window. It returns false if the Page begins beyond the window.
func (p Page) Window() (from, size int, ok bool) {
	from = (p.Number - 1) * p.Size
	if from >= MaxResultWindow {
		return 0, 0, false
	}
	size = p.Size
	if from+size > MaxResultWindow {
		size = MaxResultWindow - from
	}
	return from, size, true
}
