// Package transform projects source records into index documents. Each
// entity kind has its own Transformer, chosen when its pipeline is built.
package transform

import (
	"strings"

	"go.cinedex.dev/core/document"
	"go.cinedex.dev/core/index"
	"go.cinedex.dev/core/source"
)

// Transformer maps a source record of type R into an index Document.
// Transformers are pure: they perform no I/O.
type Transformer[R any] interface {
	Transform(R) index.Document
}

// Filmwork transforms FilmworkRecords into document.Films.
type Filmwork struct{}

var _ Transformer[source.FilmworkRecord] = Filmwork{}

// Transform buckets the record's persons by role, and joins the names of
// actors and writers for full-text matching.
func (Filmwork) Transform(r source.FilmworkRecord) index.Document {
	var doc = document.Film{
		ID:         r.ID,
		IMDBRating: r.Rating,
		Genre:      make([]document.Ref, 0, len(r.Genres)),
		Title:      r.Title,
		Directors:  []document.Ref{},
		Actors:     []document.Ref{},
		Writers:    []document.Ref{},
	}
	if r.Description != nil {
		doc.Description = *r.Description
	}
	for _, g := range r.Genres {
		doc.Genre = append(doc.Genre, document.Ref{ID: g.ID, Name: g.Name})
	}

	var actors, writers []string
	for _, p := range r.Persons {
		var ref = document.Ref{ID: p.ID, Name: p.Name}

		switch p.Role {
		case source.Actor:
			doc.Actors = append(doc.Actors, ref)
			actors = append(actors, p.Name)
		case source.Writer:
			doc.Writers = append(doc.Writers, ref)
			writers = append(writers, p.Name)
		case source.Director:
			doc.Directors = append(doc.Directors, ref)
		}
	}
	doc.ActorsNames = strings.Join(actors, " ")
	doc.WritersNames = strings.Join(writers, " ")

	return doc
}

// Person transforms PersonRecords into document.Persons.
type Person struct{}

var _ Transformer[source.PersonRecord] = Person{}

// Transform groups the record's (role, filmwork) participations into one
// entry per role, ordered by each role's first appearance.
func (Person) Transform(r source.PersonRecord) index.Document {
	var doc = document.Person{
		ID:        r.ID,
		Name:      r.FullName,
		Filmworks: []document.RoleFilms{},
	}
	var byRole = make(map[source.Role]int)

	for _, fw := range r.Filmworks {
		var ind, ok = byRole[fw.Role]
		if !ok {
			ind = len(doc.Filmworks)
			byRole[fw.Role] = ind
			doc.Filmworks = append(doc.Filmworks, document.RoleFilms{Role: string(fw.Role)})
		}
		doc.Filmworks[ind].Filmworks = append(doc.Filmworks[ind].Filmworks, document.FilmID{ID: fw.Filmwork})
	}
	return doc
}

// Genre transforms GenreRecords into document.Genres.
type Genre struct{}

var _ Transformer[source.GenreRecord] = Genre{}

// Transform copies the genre's fields.
func (Genre) Transform(r source.GenreRecord) index.Document {
	var doc = document.Genre{ID: r.ID, Name: r.Name}
	if r.Description != nil {
		doc.Description = *r.Description
	}
	return doc
}
