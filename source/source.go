// Package source defines the typed rows read from the relational catalog.
// Each row type validates itself once scanned; a row which fails validation
// fails the extraction which produced it.
package source

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Role of a person's participation in a filmwork.
type Role string

const (
	Actor    Role = "actor"
	Director Role = "director"
	Writer   Role = "writer"
)

// ChangedRow is a row of a filter query: an entity identifier and the
// modification time which qualified it.
type ChangedRow struct {
	ID       string    `db:"id"`
	Modified time.Time `db:"modified"`
}

// Validate the ChangedRow.
func (r *ChangedRow) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	} else if r.Modified.IsZero() {
		return fmt.Errorf("row %s: missing modified timestamp", r.ID)
	}
	return nil
}

// FilmworkPerson is a participant of a FilmworkRecord.
type FilmworkPerson struct {
	Role Role   `json:"person_role"`
	ID   string `json:"person_id"`
	Name string `json:"person_name"`
}

// FilmworkGenre is a genre of a FilmworkRecord.
type FilmworkGenre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FilmworkRecord is a collected filmwork with its participants and genres.
type FilmworkRecord struct {
	ID          string                   `db:"id"`
	Title       string                   `db:"title"`
	Description *string                  `db:"description"`
	Rating      *float64                 `db:"rating"`
	Type        string                   `db:"type"`
	Created     time.Time                `db:"created"`
	Modified    time.Time                `db:"modified"`
	Persons     JSONList[FilmworkPerson] `db:"persons"`
	Genres      JSONList[FilmworkGenre]  `db:"genres"`
}

// Validate the FilmworkRecord.
func (r *FilmworkRecord) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	} else if r.Title == "" {
		return fmt.Errorf("filmwork %s: empty title", r.ID)
	}
	for _, p := range r.Persons {
		switch p.Role {
		case Actor, Director, Writer:
		default:
			return fmt.Errorf("filmwork %s: person %s has unknown role %q", r.ID, p.ID, p.Role)
		}
		if err := validateID(p.ID); err != nil {
			return errors.WithMessagef(err, "filmwork %s person", r.ID)
		}
	}
	for _, g := range r.Genres {
		if err := validateID(g.ID); err != nil {
			return errors.WithMessagef(err, "filmwork %s genre", r.ID)
		}
	}
	return nil
}

// PersonFilmwork is a (role, filmwork) participation of a PersonRecord.
type PersonFilmwork struct {
	Role     Role   `json:"role"`
	Filmwork string `json:"filmwork"`
}

// PersonRecord is a collected person with their participations.
type PersonRecord struct {
	ID        string                   `db:"id"`
	FullName  string                   `db:"full_name"`
	Created   time.Time                `db:"created"`
	Modified  time.Time                `db:"modified"`
	Filmworks JSONList[PersonFilmwork] `db:"filmworks"`
}

// Validate the PersonRecord.
func (r *PersonRecord) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	} else if r.FullName == "" {
		return fmt.Errorf("person %s: empty full_name", r.ID)
	}
	for _, fw := range r.Filmworks {
		if fw.Role == "" {
			return fmt.Errorf("person %s: filmwork %s has empty role", r.ID, fw.Filmwork)
		} else if err := validateID(fw.Filmwork); err != nil {
			return errors.WithMessagef(err, "person %s filmwork", r.ID)
		}
	}
	return nil
}

// GenreRecord is a collected genre.
type GenreRecord struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	Created     time.Time `db:"created"`
	Modified    time.Time `db:"modified"`
}

// Validate the GenreRecord.
func (r *GenreRecord) Validate() error {
	if err := validateID(r.ID); err != nil {
		return err
	} else if r.Name == "" {
		return fmt.Errorf("genre %s: empty name", r.ID)
	}
	return nil
}

// JSONList is a column holding a JSON array, as produced by json_agg.
// A NULL column scans as an empty list.
type JSONList[T any] []T

// Scan implements sql.Scanner.
func (l *JSONList[T]) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into a JSON list", src)
	}
	var out []T
	if err := json.Unmarshal(b, &out); err != nil {
		return errors.WithMessage(err, "decoding JSON list")
	}
	*l = out
	return nil
}

// Value implements driver.Valuer.
func (l JSONList[T]) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	var b, err = json.Marshal([]T(l))
	return string(b), err
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.WithMessagef(err, "invalid id %q", id)
	}
	return nil
}
