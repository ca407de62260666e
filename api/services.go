package api

import (
	"context"

	"go.cinedex.dev/core/document"
	"go.cinedex.dev/core/readcache"
	"go.cinedex.dev/core/search"
)

// FilmSortFields are the sortable fields of films, and the indexed
// fields they order on.
var FilmSortFields = map[string]string{
	"imdb_rating": "imdb_rating",
	"title":       "title.raw",
}

// DefaultFilmSort orders films by descending rating.
var DefaultFilmSort = search.Sort{Field: "imdb_rating", Desc: true}

// Films reads film documents.
type Films struct {
	Reader *readcache.Reader[document.Film]
}

// Get the film |id|.
func (s Films) Get(ctx context.Context, id string) (document.Film, error) {
	return s.Reader.GetObject(ctx, id)
}

// List films in |sort| order, optionally filtered to those of |genre|.
func (s Films) List(ctx context.Context, sort search.Sort, genre string, page search.Page) ([]document.Film, error) {
	var query = search.MatchAll()
	if genre != "" {
		query = search.NestedTerms("genre", "id", genre)
	}
	return s.Reader.GetList(ctx, search.Request(query, sort), page)
}

// Search films matching |text| by title, description, and the names of
// their actors and writers.
func (s Films) Search(ctx context.Context, text string, page search.Page) ([]document.Film, error) {
	var query = search.MultiMatch(text, "title^3", "description", "actors_names", "writers_names")
	return s.Reader.GetList(ctx, search.Request(query), page)
}

// Similar returns films sharing a genre with film |id|, excluding itself.
func (s Films) Similar(ctx context.Context, id string, sort search.Sort, page search.Page) ([]document.Film, error) {
	var film, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var genres = film.GenreIDs()
	if len(genres) == 0 {
		return nil, readcache.ErrNotFound
	}
	var query = search.Bool(
		[]search.Body{search.NestedTerms("genre", "id", genres...)},
		[]search.Body{search.IDs(id)},
	)
	return s.Reader.GetList(ctx, search.Request(query, sort), page)
}

// ByIDs returns films having |ids|, in |sort| order.
func (s Films) ByIDs(ctx context.Context, ids []string, sort search.Sort, page search.Page) ([]document.Film, error) {
	if len(ids) == 0 {
		return nil, readcache.ErrNotFound
	}
	return s.Reader.GetList(ctx, search.Request(search.IDs(ids...), sort), page)
}

// Genres reads genre documents.
type Genres struct {
	Reader *readcache.Reader[document.Genre]
}

// Get the genre |id|.
func (s Genres) Get(ctx context.Context, id string) (document.Genre, error) {
	return s.Reader.GetObject(ctx, id)
}

// List genres by name.
func (s Genres) List(ctx context.Context, page search.Page) ([]document.Genre, error) {
	return s.Reader.GetList(ctx, search.Request(search.MatchAll(), search.Sort{Field: "name.raw"}), page)
}

// Persons reads person documents.
type Persons struct {
	Reader *readcache.Reader[document.Person]
	Films  Films
}

// Get the person |id|.
func (s Persons) Get(ctx context.Context, id string) (document.Person, error) {
	return s.Reader.GetObject(ctx, id)
}

// List persons by name.
func (s Persons) List(ctx context.Context, page search.Page) ([]document.Person, error) {
	return s.Reader.GetList(ctx, search.Request(search.MatchAll(), search.Sort{Field: "name.raw"}), page)
}

// Search persons by name.
func (s Persons) Search(ctx context.Context, text string, page search.Page) ([]document.Person, error) {
	return s.Reader.GetList(ctx, search.Request(search.Match("name", text)), page)
}

// FilmsOf returns the films of person |id|, in any role.
func (s Persons) FilmsOf(ctx context.Context, id string, page search.Page) ([]document.Film, error) {
	var person, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Films.ByIDs(ctx, person.FilmIDs(), DefaultFilmSort, page)
}
