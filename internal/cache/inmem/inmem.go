// Package inmem is a cache store that keeps entries in memory for the life of
// the process.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dekarrin/parselet/internal/cache"
	"github.com/dekarrin/parselet/internal/util"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func NewStore(log logrus.FieldLogger) *Store {
	if log == nil {
		log = cache.NopLogger()
	}
	return &Store{
		entries:     make(map[uuid.UUID]cache.Entry),
		byPathIndex: make(map[string]uuid.UUID),
		log:         log,
	}
}

type Store struct {
	mtx         sync.RWMutex
	entries     map[uuid.UUID]cache.Entry
	byPathIndex map[string]uuid.UUID
	log         logrus.FieldLogger
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) Create(ctx context.Context, e cache.Entry) (cache.Entry, error) {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		return cache.Entry{}, fmt.Errorf("could not generate ID: %w", err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.byPathIndex[e.Path]; ok {
		return cache.Entry{}, cache.ErrConstraintViolation
	}

	e.ID = newUUID
	e.Created = time.Now()
	e.Data = append([]byte(nil), e.Data...)

	s.entries[e.ID] = e
	s.byPathIndex[e.Path] = e.ID
	s.log.WithField("path", e.Path).Debug("entry created")

	return e, nil
}

func (s *Store) GetAll(ctx context.Context) ([]cache.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	all := make([]cache.Entry, 0, len(s.entries))
	for k := range s.entries {
		all = append(all, s.entries[k])
	}

	all = util.SortBy(all, func(l, r cache.Entry) bool {
		return l.Path < r.Path
	})

	return all, nil
}

func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}

	return e, nil
}

func (s *Store) GetByPath(ctx context.Context, path string) (cache.Entry, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.byPathIndex[path]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}

	return s.entries[id], nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (cache.Entry, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}

	delete(s.byPathIndex, e.Path)
	delete(s.entries, e.ID)
	s.log.WithField("path", e.Path).Debug("entry deleted")

	return e, nil
}
