// Package api serves the read-only HTTP API over the film, genre, and
// person indices. Lists and single objects alike return 404 when nothing
// is found, and invalid parameters return 422.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/metrics"
	"go.cinedex.dev/core/readcache"
	"go.cinedex.dev/core/search"
)

// Services of the API.
type Services struct {
	Films   Films
	Genres  Genres
	Persons Persons
}

// ValidationError is an invalid request parameter.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// NewRouter returns a Router serving |svc| under /api/v1.
func NewRouter(svc Services) *mux.Router {
	var h = &handler{svc: svc, decoder: schema.NewDecoder()}
	h.decoder.IgnoreUnknownKeys(true)

	var router = mux.NewRouter()
	var v1 = router.PathPrefix("/api/v1").Subrouter()

	h.route(v1, "/films", "films", h.listFilms)
	h.route(v1, "/films/search", "films_search", h.searchFilms)
	h.route(v1, "/films/{id}", "film", h.getFilm)
	h.route(v1, "/films/{id}/similar", "films_similar", h.similarFilms)
	h.route(v1, "/genres", "genres", h.listGenres)
	h.route(v1, "/genres/{id}", "genre", h.getGenre)
	h.route(v1, "/persons", "persons", h.listPersons)
	h.route(v1, "/persons/search", "persons_search", h.searchPersons)
	h.route(v1, "/persons/{id}", "person", h.getPerson)
	h.route(v1, "/persons/{id}/film", "person_films", h.personFilms)

	return router
}

type handler struct {
	svc     Services
	decoder *schema.Decoder
}

// params are the query parameters of list and search requests.
type params struct {
	Sort       string `schema:"sort"`
	Genre      string `schema:"filter[genre]"`
	Query      string `schema:"query"`
	PageSize   int    `schema:"page[size]"`
	PageNumber int    `schema:"page[number]"`
}

func (p params) page() search.Page {
	return search.Page{Number: p.PageNumber, Size: p.PageSize}
}

// route registers |fn| at |path| and |path|/, for GET requests.
func (h *handler) route(r *mux.Router, path, name string, fn func(*http.Request) (interface{}, error)) {
	var hf = func(w http.ResponseWriter, req *http.Request) {
		var out, err = fn(req)
		var code = http.StatusOK

		if err != nil {
			code = h.respondError(w, req, err)
		} else {
			respondJSON(w, code, out)
		}
		metrics.APIRequestTotal.WithLabelValues(name, strconv.Itoa(code)).Inc()
	}
	r.HandleFunc(path, hf).Methods(http.MethodGet)
	r.HandleFunc(path+"/", hf).Methods(http.MethodGet)
}

func (h *handler) parse(req *http.Request) (params, error) {
	var p = params{
		PageSize:   search.DefaultPageSize,
		PageNumber: search.DefaultPageNumber,
	}
	var values, err = url.ParseQuery(req.URL.RawQuery)
	if err == nil {
		err = h.decoder.Decode(&p, values)
	}
	if err != nil {
		return p, &ValidationError{Reason: fmt.Sprintf("invalid query parameters: %v", err)}
	} else if err = p.page().Validate(); err != nil {
		return p, &ValidationError{Reason: err.Error()}
	} else if p.Genre != "" {
		if _, err = uuid.Parse(p.Genre); err != nil {
			return p, &ValidationError{Reason: "filter[genre] must be a UUID"}
		}
	}
	return p, nil
}

func (h *handler) filmSort(p params) (search.Sort, error) {
	if p.Sort == "" {
		return DefaultFilmSort, nil
	}
	var s, err = search.ParseSort(p.Sort, FilmSortFields)
	if err != nil {
		return s, &ValidationError{Reason: err.Error()}
	}
	return s, nil
}

func pathID(req *http.Request) (string, error) {
	var id = mux.Vars(req)["id"]
	if _, err := uuid.Parse(id); err != nil {
		return "", &ValidationError{Reason: fmt.Sprintf("invalid id %q", id)}
	}
	return id, nil
}

func (h *handler) listFilms(req *http.Request) (interface{}, error) {
	var p, err = h.parse(req)
	if err != nil {
		return nil, err
	}
	sort, err := h.filmSort(p)
	if err != nil {
		return nil, err
	}
	films, err := h.svc.Films.List(req.Context(), sort, p.Genre, p.page())
	if err != nil {
		return nil, err
	}
	return filmShorts(films), nil
}

func (h *handler) searchFilms(req *http.Request) (interface{}, error) {
	var p, err = h.parse(req)
	if err != nil {
		return nil, err
	} else if p.Query == "" {
		return nil, &ValidationError{Reason: "query is required"}
	}
	films, err := h.svc.Films.Search(req.Context(), p.Query, p.page())
	if err != nil {
		return nil, err
	}
	return filmShorts(films), nil
}

func (h *handler) getFilm(req *http.Request) (interface{}, error) {
	var id, err = pathID(req)
	if err != nil {
		return nil, err
	}
	film, err := h.svc.Films.Get(req.Context(), id)
	if err != nil {
		return nil, err
	}
	return filmFull(film), nil
}

func (h *handler) similarFilms(req *http.Request) (interface{}, error) {
	var id, err = pathID(req)
	if err != nil {
		return nil, err
	}
	p, err := h.parse(req)
	if err != nil {
		return nil, err
	}
	sort, err := h.filmSort(p)
	if err != nil {
		return nil, err
	}
	films, err := h.svc.Films.Similar(req.Context(), id, sort, p.page())
	if err != nil {
		return nil, err
	}
	return filmShorts(films), nil
}

func (h *handler) listGenres(req *http.Request) (interface{}, error) {
	var p, err = h.parse(req)
	if err != nil {
		return nil, err
	}
	genres, err := h.svc.Genres.List(req.Context(), p.page())
	if err != nil {
		return nil, err
	}
	var out = make([]Genre, len(genres))
	for i, g := range genres {
		out[i] = genreOut(g)
	}
	return out, nil
}

func (h *handler) getGenre(req *http.Request) (interface{}, error) {
	var id, err = pathID(req)
	if err != nil {
		return nil, err
	}
	genre, err := h.svc.Genres.Get(req.Context(), id)
	if err != nil {
		return nil, err
	}
	return genreOut(genre), nil
}

func (h *handler) listPersons(req *http.Request) (interface{}, error) {
	var p, err = h.parse(req)
	if err != nil {
		return nil, err
	}
	persons, err := h.svc.Persons.List(req.Context(), p.page())
	if err != nil {
		return nil, err
	}
	return personShorts(persons), nil
}

func (h *handler) searchPersons(req *http.Request) (interface{}, error) {
	var p, err = h.parse(req)
	if err != nil {
		return nil, err
	} else if p.Query == "" {
		return nil, &ValidationError{Reason: "query is required"}
	}
	persons, err := h.svc.Persons.Search(req.Context(), p.Query, p.page())
	if err != nil {
		return nil, err
	}
	return personShorts(persons), nil
}

func (h *handler) getPerson(req *http.Request) (interface{}, error) {
	var id, err = pathID(req)
	if err != nil {
		return nil, err
	}
	person, err := h.svc.Persons.Get(req.Context(), id)
	if err != nil {
		return nil, err
	}
	return personFull(person), nil
}

func (h *handler) personFilms(req *http.Request) (interface{}, error) {
	var id, err = pathID(req)
	if err != nil {
		return nil, err
	}
	p, err := h.parse(req)
	if err != nil {
		return nil, err
	}
	films, err := h.svc.Persons.FilmsOf(req.Context(), id, p.page())
	if err != nil {
		return nil, err
	}
	return filmShorts(films), nil
}

// respondError writes the response of |err|, returning its status code.
func (h *handler) respondError(w http.ResponseWriter, req *http.Request, err error) int {
	var verr *ValidationError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: verr.Reason})
		return http.StatusUnprocessableEntity
	case errors.Is(err, readcache.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody{Detail: "not found"})
		return http.StatusNotFound
	default:
		log.WithFields(log.Fields{"err": err, "url": req.URL.String()}).Error("request failed")
		respondJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "search index unavailable"})
		return http.StatusServiceUnavailable
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithField("err", err).Warn("failed to write response")
	}
}
