// Package fsstore is a cache store that keeps one file per entry in a
// directory.
package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dekarrin/parselet/internal/cache"
	"github.com/dekarrin/parselet/internal/util"
	"github.com/dekarrin/rezi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FileExt is the extension of entry files.
const FileExt = ".pcache"

// NewStore opens a store in dir on fs, creating the directory if needed.
func NewStore(fs afero.Fs, dir string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = cache.NopLogger()
	}
	if err := fs.MkdirAll(dir, 0770); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{fs: fs, dir: dir, log: log}, nil
}

type Store struct {
	mtx sync.Mutex
	fs  afero.Fs
	dir string
	log logrus.FieldLogger
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) file(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+FileExt)
}

func (s *Store) Create(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		return cache.Entry{}, err
	}
	for _, existing := range all {
		if existing.Path == e.Path {
			return cache.Entry{}, cache.ErrConstraintViolation
		}
	}

	e.ID = newUUID
	e.Created = time.Unix(time.Now().Unix(), 0)

	if err := afero.WriteFile(s.fs, s.file(e.ID), rezi.EncBinary(e), 0660); err != nil {
		return cache.Entry{}, fmt.Errorf("write entry: %w", err)
	}
	s.log.WithField("path", e.Path).Debug("entry created")

	return e, nil
}

func (s *Store) GetAll(ctx context.Context) ([]cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}

	return util.SortBy(all, func(l, r cache.Entry) bool {
		return l.Path < r.Path
	}), nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.read(s.file(id))
}

func (s *Store) GetByPath(ctx context.Context, path string) (cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	all, err := s.readAll(ctx)
	if err != nil {
		return cache.Entry{}, err
	}
	for _, e := range all {
		if e.Path == path {
			return e, nil
		}
	}
	return cache.Entry{}, cache.ErrNotFound
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	fileName := s.file(id)
	e, err := s.read(fileName)
	if err != nil {
		return e, err
	}

	if err := s.fs.Remove(fileName); err != nil {
		return e, fmt.Errorf("remove entry: %w", err)
	}
	s.log.WithField("path", e.Path).Debug("entry deleted")

	return e, nil
}

// read loads the entry in fileName. It must be called with mtx held.
func (s *Store) read(fileName string) (cache.Entry, error) {
	data, err := afero.ReadFile(s.fs, fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return cache.Entry{}, cache.ErrNotFound
		}
		return cache.Entry{}, err
	}

	var e cache.Entry
	if _, err := rezi.DecBinary(data, &e); err != nil {
		return cache.Entry{}, fmt.Errorf("%w: %s: %v", cache.ErrCorrupt, fileName, err)
	}
	return e, nil
}

// readAll loads every readable entry in the directory. Unreadable files are
// logged and skipped. It must be called with mtx held.
func (s *Store) readAll(ctx context.Context) ([]cache.Entry, error) {
	infos, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}

	var all []cache.Entry
	for _, info := range infos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), FileExt) {
			continue
		}
		e, err := s.read(filepath.Join(s.dir, info.Name()))
		if err != nil {
			s.log.WithField("file", info.Name()).Warnf("skipping cache file: %v", err)
			continue
		}
		all = append(all, e)
	}
	return all, nil
}
