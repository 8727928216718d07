// Package cachetest has the behavior tests every cache.Store must pass.
package cachetest

import (
	"context"
	"testing"

	"github.com/dekarrin/parselet/internal/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// StoreTests runs the Store behavior tests against stores made by newStore.
// Each test gets its own empty store.
func StoreTests(t *testing.T, newStore func(t *testing.T) cache.Store) {
	ctx := context.Background()

	sample := func(path string) cache.Entry {
		return cache.Entry{
			Path:     path,
			Language: "mc",
			Kind:     cache.KindParse,
			Checksum: cache.Checksum(path),
			Format:   2,
			Data:     []byte{0x02, 'm', 'c', 0x00},
		}
	}

	t.Run("create then get", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(t)
		defer s.Close()

		created, err := s.Create(ctx, sample("a.mc"))
		if !assert.NoError(err) {
			return
		}
		assert.NotEqual(uuid.Nil, created.ID)
		assert.False(created.Created.IsZero())

		byID, err := s.GetByID(ctx, created.ID)
		assert.NoError(err)
		assert.Equal("a.mc", byID.Path)
		assert.Equal("mc", byID.Language)
		assert.Equal(cache.KindParse, byID.Kind)
		assert.Equal(cache.Checksum("a.mc"), byID.Checksum)
		assert.Equal(2, byID.Format)
		assert.Equal([]byte{0x02, 'm', 'c', 0x00}, byID.Data)

		byPath, err := s.GetByPath(ctx, "a.mc")
		assert.NoError(err)
		assert.Equal(created.ID, byPath.ID)
	})

	t.Run("duplicate path", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(t)
		defer s.Close()

		_, err := s.Create(ctx, sample("a.mc"))
		assert.NoError(err)
		_, err = s.Create(ctx, sample("a.mc"))
		assert.ErrorIs(err, cache.ErrConstraintViolation)
	})

	t.Run("not found", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(t)
		defer s.Close()

		_, err := s.GetByID(ctx, uuid.New())
		assert.ErrorIs(err, cache.ErrNotFound)
		_, err = s.GetByPath(ctx, "nope.mc")
		assert.ErrorIs(err, cache.ErrNotFound)
		_, err = s.Delete(ctx, uuid.New())
		assert.ErrorIs(err, cache.ErrNotFound)
	})

	t.Run("get all is ordered by path", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(t)
		defer s.Close()

		for _, p := range []string{"b.mc", "c.sig", "a.mc"} {
			_, err := s.Create(ctx, sample(p))
			assert.NoError(err)
		}

		all, err := s.GetAll(ctx)
		if !assert.NoError(err) || !assert.Len(all, 3) {
			return
		}
		assert.Equal("a.mc", all[0].Path)
		assert.Equal("b.mc", all[1].Path)
		assert.Equal("c.sig", all[2].Path)
	})

	t.Run("delete", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(t)
		defer s.Close()

		created, err := s.Create(ctx, sample("a.mc"))
		if !assert.NoError(err) {
			return
		}
		deleted, err := s.Delete(ctx, created.ID)
		assert.NoError(err)
		assert.Equal("a.mc", deleted.Path)

		_, err = s.GetByPath(ctx, "a.mc")
		assert.ErrorIs(err, cache.ErrNotFound)

		// the path is free again
		_, err = s.Create(ctx, sample("a.mc"))
		assert.NoError(err)
	})

	t.Run("replace", func(t *testing.T) {
		assert := assert.New(t)
		s := newStore(t)
		defer s.Close()

		first, err := cache.Replace(ctx, s, sample("a.mc"))
		assert.NoError(err)

		next := sample("a.mc")
		next.Checksum = "changed"
		second, err := cache.Replace(ctx, s, next)
		assert.NoError(err)
		assert.NotEqual(first.ID, second.ID)

		all, err := s.GetAll(ctx)
		assert.NoError(err)
		if assert.Len(all, 1) {
			assert.Equal("changed", all[0].Checksum)
		}
	})
}
