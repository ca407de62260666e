// Package document defines the denormalized documents held by the search
// index: one shape per index.
package document

// Ref is a reference to a named entity, nested within a Film.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Film is a document of the movies index.
type Film struct {
	ID           string   `json:"id"`
	IMDBRating   *float64 `json:"imdb_rating"`
	Genre        []Ref    `json:"genre"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	ActorsNames  string   `json:"actors_names"`
	WritersNames string   `json:"writers_names"`
	Directors    []Ref    `json:"directors"`
	Actors       []Ref    `json:"actors"`
	Writers      []Ref    `json:"writers"`
}

// DocumentID returns the Film's identifier.
func (f Film) DocumentID() string { return f.ID }

// FilmID is a reference to a Film, nested within a Person.
type FilmID struct {
	ID string `json:"id"`
}

// RoleFilms are the films of a Person in a given role.
type RoleFilms struct {
	Role      string   `json:"role"`
	Filmworks []FilmID `json:"filmworks"`
}

// Person is a document of the persons index.
type Person struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Filmworks []RoleFilms `json:"filmworks"`
}

// DocumentID returns the Person's identifier.
func (p Person) DocumentID() string { return p.ID }

// FilmIDs returns the distinct film identifiers of the Person, in role order.
func (p Person) FilmIDs() []string {
	var out []string
	var seen = make(map[string]struct{})

	for _, rf := range p.Filmworks {
		for _, fw := range rf.Filmworks {
			if _, ok := seen[fw.ID]; !ok {
				seen[fw.ID] = struct{}{}
				out = append(out, fw.ID)
			}
		}
	}
	return out
}

// Genre is a document of the genres index.
type Genre struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DocumentID returns the Genre's identifier.
func (g Genre) DocumentID() string { return g.ID }

// GenreIDs returns the identifiers of the Film's genres.
func (f Film) GenreIDs() []string {
	var out = make([]string, len(f.Genre))
	for i, g := range f.Genre {
		out[i] = g.ID
	}
	return out
}
