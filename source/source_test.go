package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONListScan(t *testing.T) {
	var l JSONList[FilmworkPerson]

	require.NoError(t, l.Scan([]byte(`[{"person_role":"actor","person_id":"p1","person_name":"Ann"}]`)))
	assert.Equal(t, JSONList[FilmworkPerson]{{Role: Actor, ID: "p1", Name: "Ann"}}, l)

	require.NoError(t, l.Scan(`[]`))
	assert.Empty(t, l)
	require.NoError(t, l.Scan(nil))
	assert.Nil(t, l)

	assert.EqualError(t, l.Scan(42), "cannot scan int into a JSON list")
	assert.Error(t, l.Scan(`{"not":"a list"}`))

	var v, err = JSONList[PersonFilmwork]{{Role: Writer, Filmwork: "f1"}}.Value()
	require.NoError(t, err)
	assert.Equal(t, `[{"role":"writer","filmwork":"f1"}]`, v)
}

func TestValidation(t *testing.T) {
	const id = "3d8d9bf5-0d90-4353-88ba-4ccc5d2c07ff"
	var now = time.Now()

	assert.NoError(t, (&ChangedRow{ID: id, Modified: now}).Validate())
	assert.EqualError(t, (&ChangedRow{ID: id}).Validate(), "row "+id+": missing modified timestamp")
	assert.Error(t, (&ChangedRow{ID: "nope", Modified: now}).Validate())

	var fw = FilmworkRecord{
		ID:      id,
		Title:   "Star Wars",
		Persons: JSONList[FilmworkPerson]{{Role: Actor, ID: id, Name: "Ann"}},
		Genres:  JSONList[FilmworkGenre]{{ID: id, Name: "Sci-Fi"}},
	}
	assert.NoError(t, fw.Validate())
	fw.Persons[0].Role = "grip"
	assert.EqualError(t, fw.Validate(), "filmwork "+id+": person "+id+` has unknown role "grip"`)
	fw.Persons, fw.Title = nil, ""
	assert.EqualError(t, fw.Validate(), "filmwork "+id+": empty title")

	var p = PersonRecord{ID: id, FullName: "Ann", Filmworks: JSONList[PersonFilmwork]{{Role: Actor, Filmwork: "x"}}}
	assert.Error(t, p.Validate())
	p.Filmworks[0].Filmwork = id
	assert.NoError(t, p.Validate())

	assert.EqualError(t, (&GenreRecord{ID: id}).Validate(), "genre "+id+": empty name")
}
