package transform

import (
	"testing"

	"go.cinedex.dev/core/document"
	"go.cinedex.dev/core/source"
	gc "gopkg.in/check.v1"
)

type TransformSuite struct{}

func (s *TransformSuite) TestFilmworkBucketsPersonsByRole(c *gc.C) {
	var rating = 8.1
	var desc = "A rebel pilot."

	var doc = Filmwork{}.Transform(source.FilmworkRecord{
		ID:          "3d8d9bf5-0d90-4353-88ba-4ccc5d2c07ff",
		Title:       "Star Wars",
		Description: &desc,
		Rating:      &rating,
		Persons: source.JSONList[source.FilmworkPerson]{
			{Role: source.Actor, ID: "a1", Name: "Mark Hamill"},
			{Role: source.Director, ID: "d1", Name: "George Lucas"},
			{Role: source.Actor, ID: "a2", Name: "Carrie Fisher"},
			{Role: source.Writer, ID: "d1", Name: "George Lucas"},
		},
		Genres: source.JSONList[source.FilmworkGenre]{
			{ID: "g1", Name: "Sci-Fi"},
		},
	})

	c.Check(doc, gc.DeepEquals, document.Film{
		ID:           "3d8d9bf5-0d90-4353-88ba-4ccc5d2c07ff",
		IMDBRating:   &rating,
		Genre:        []document.Ref{{ID: "g1", Name: "Sci-Fi"}},
		Title:        "Star Wars",
		Description:  "A rebel pilot.",
		ActorsNames:  "Mark Hamill Carrie Fisher",
		WritersNames: "George Lucas",
		Directors:    []document.Ref{{ID: "d1", Name: "George Lucas"}},
		Actors:       []document.Ref{{ID: "a1", Name: "Mark Hamill"}, {ID: "a2", Name: "Carrie Fisher"}},
		Writers:      []document.Ref{{ID: "d1", Name: "George Lucas"}},
	})
	c.Check(doc.DocumentID(), gc.Equals, "3d8d9bf5-0d90-4353-88ba-4ccc5d2c07ff")
}

func (s *TransformSuite) TestFilmworkWithoutPersonsOrGenres(c *gc.C) {
	var doc = Filmwork{}.Transform(source.FilmworkRecord{ID: "f1", Title: "Untitled"}).(document.Film)

	c.Check(doc.ActorsNames, gc.Equals, "")
	c.Check(doc.WritersNames, gc.Equals, "")
	c.Check(doc.IMDBRating, gc.IsNil)
	c.Check(doc.Genre, gc.HasLen, 0)
	c.Check(doc.Actors, gc.NotNil)
	c.Check(doc.Directors, gc.HasLen, 0)
}

func (s *TransformSuite) TestPersonGroupsFilmworksByRole(c *gc.C) {
	var doc = Person{}.Transform(source.PersonRecord{
		ID:       "p1",
		FullName: "George Lucas",
		Filmworks: source.JSONList[source.PersonFilmwork]{
			{Role: source.Actor, Filmwork: "A"},
			{Role: source.Writer, Filmwork: "C"},
			{Role: source.Actor, Filmwork: "B"},
		},
	})

	c.Check(doc, gc.DeepEquals, document.Person{
		ID:   "p1",
		Name: "George Lucas",
		Filmworks: []document.RoleFilms{
			{Role: "actor", Filmworks: []document.FilmID{{ID: "A"}, {ID: "B"}}},
			{Role: "writer", Filmworks: []document.FilmID{{ID: "C"}}},
		},
	})
	c.Check(doc.(document.Person).FilmIDs(), gc.DeepEquals, []string{"A", "B", "C"})
}

func (s *TransformSuite) TestPersonWithoutFilmworks(c *gc.C) {
	var doc = Person{}.Transform(source.PersonRecord{ID: "p2", FullName: "Nobody"})
	c.Check(doc, gc.DeepEquals, document.Person{ID: "p2", Name: "Nobody", Filmworks: []document.RoleFilms{}})
}

func (s *TransformSuite) TestGenre(c *gc.C) {
	var desc = "Space opera."
	c.Check(Genre{}.Transform(source.GenreRecord{ID: "g1", Name: "Sci-Fi", Description: &desc}),
		gc.DeepEquals, document.Genre{ID: "g1", Name: "Sci-Fi", Description: "Space opera."})
	c.Check(Genre{}.Transform(source.GenreRecord{ID: "g2", Name: "Drama"}),
		gc.DeepEquals, document.Genre{ID: "g2", Name: "Drama"})
}

var _ = gc.Suite(&TransformSuite{})

func Test(t *testing.T) { gc.TestingT(t) }
