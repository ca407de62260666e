package api

import "go.cinedex.dev/core/document"

// FilmShort is a film within a list.
type FilmShort struct {
	UUID       string   `json:"uuid"`
	Title      string   `json:"title"`
	IMDBRating *float64 `json:"imdb_rating"`
}

// GenreRef is a genre of a FilmFull.
type GenreRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// PersonRef is a participant of a FilmFull.
type PersonRef struct {
	UUID     string `json:"uuid"`
	FullName string `json:"full_name"`
}

// FilmFull is a film with its genres and participants.
type FilmFull struct {
	UUID        string      `json:"uuid"`
	Title       string      `json:"title"`
	IMDBRating  *float64    `json:"imdb_rating"`
	Description string      `json:"description"`
	Genre       []GenreRef  `json:"genre"`
	Actors      []PersonRef `json:"actors"`
	Writers     []PersonRef `json:"writers"`
	Directors   []PersonRef `json:"directors"`
}

// Genre is a genre.
type Genre struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PersonShort is a person within a list.
type PersonShort struct {
	UUID     string `json:"uuid"`
	FullName string `json:"full_name"`
}

// PersonRole is a role of a person, and their films in that role.
type PersonRole struct {
	Role    string   `json:"role"`
	FilmIDs []string `json:"film_ids"`
}

// PersonFull is a person with their films grouped by role.
type PersonFull struct {
	UUID     string       `json:"uuid"`
	FullName string       `json:"full_name"`
	Films    []PersonRole `json:"films"`
}

func filmShorts(films []document.Film) []FilmShort {
	var out = make([]FilmShort, len(films))
	for i, f := range films {
		out[i] = FilmShort{UUID: f.ID, Title: f.Title, IMDBRating: f.IMDBRating}
	}
	return out
}

func filmFull(f document.Film) FilmFull {
	var out = FilmFull{
		UUID:        f.ID,
		Title:       f.Title,
		IMDBRating:  f.IMDBRating,
		Description: f.Description,
		Genre:       make([]GenreRef, len(f.Genre)),
		Actors:      personRefs(f.Actors),
		Writers:     personRefs(f.Writers),
		Directors:   personRefs(f.Directors),
	}
	for i, g := range f.Genre {
		out.Genre[i] = GenreRef{UUID: g.ID, Name: g.Name}
	}
	return out
}

func personRefs(refs []document.Ref) []PersonRef {
	var out = make([]PersonRef, len(refs))
	for i, r := range refs {
		out[i] = PersonRef{UUID: r.ID, FullName: r.Name}
	}
	return out
}

func genreOut(g document.Genre) Genre {
	return Genre{UUID: g.ID, Name: g.Name, Description: g.Description}
}

func personShorts(persons []document.Person) []PersonShort {
	var out = make([]PersonShort, len(persons))
	for i, p := range persons {
		out[i] = PersonShort{UUID: p.ID, FullName: p.Name}
	}
	return out
}

func personFull(p document.Person) PersonFull {
	var out = PersonFull{UUID: p.ID, FullName: p.Name, Films: make([]PersonRole, len(p.Filmworks))}
	for i, rf := range p.Filmworks {
		var ids = make([]string, len(rf.Filmworks))
		for j, fw := range rf.Filmworks {
			ids[j] = fw.ID
		}
		out.Films[i] = PersonRole{Role: rf.Role, FilmIDs: ids}
	}
	return out
}
