package kvstore

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// FileStore is a Store which persists each key as a JSON file within a
// directory. Writes land in a temporary file which is then renamed into
// place, so that readers observe either the prior or the next value.
type FileStore struct {
	fs  afero.Fs
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore returns a FileStore rooted at |dir| of |fs|, creating |dir|
// if required.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithMessage(err, "creating store directory")
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	var b, err = afero.ReadFile(s.fs, s.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, errors.WithMessagef(err, "reading %q", key)
	}

	var rec fileRecord
	if err = json.Unmarshal(b, &rec); err != nil {
		return nil, errors.WithMessagef(err, "decoding %q", key)
	} else if rec.Expires != nil && !timeNow().Before(*rec.Expires) {
		_ = s.fs.Remove(s.path(key))
		return nil, ErrNotFound
	}
	return rec.Value, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var rec = fileRecord{Value: value}
	if ttl != 0 {
		var expires = timeNow().Add(ttl)
		rec.Expires = &expires
	}
	var b, err = json.Marshal(rec)
	if err != nil {
		return errors.WithMessagef(err, "encoding %q", key)
	}

	var next = s.path(key) + ".next"
	if err = afero.WriteFile(s.fs, next, b, 0644); err != nil {
		return errors.WithMessagef(err, "writing %q", key)
	} else if err = s.fs.Rename(next, s.path(key)); err != nil {
		return errors.WithMessagef(err, "renaming %q into place", key)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := s.fs.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.WithMessagef(err, "removing %q", key)
	}
	return nil
}

func (s *FileStore) FlushAll(context.Context) error {
	var infos, err = afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return errors.WithMessage(err, "listing store directory")
	}
	for _, info := range infos {
		if err = s.fs.Remove(filepath.Join(s.dir, info.Name())); err != nil {
			return errors.WithMessagef(err, "removing %q", info.Name())
		}
	}
	return nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+".json")
}

type fileRecord struct {
	Value   []byte     `json:"value"`
	Expires *time.Time `json:"expires,omitempty"`
}
