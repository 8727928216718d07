package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dekarrin/parselet/internal/cache"
	"github.com/dekarrin/parselet/internal/cache/cachetest"
	"github.com/stretchr/testify/assert"
)

func Test_Store(t *testing.T) {
	cachetest.StoreTests(t, func(t *testing.T) cache.Store {
		st, err := NewStore(filepath.Join(t.TempDir(), "cache.db"), nil)
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		return st
	})
}

func Test_Store_Reopen(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	file := filepath.Join(t.TempDir(), "cache.db")

	st, err := NewStore(file, nil)
	if !assert.NoError(err) {
		return
	}
	created, err := st.Create(ctx, cache.Entry{Path: "x.mc", Language: "mc", Compressed: true, Data: []byte{1, 2, 3}})
	assert.NoError(err)
	assert.NoError(st.Close())

	st, err = NewStore(file, nil)
	if !assert.NoError(err) {
		return
	}
	defer st.Close()

	actual, err := st.GetByPath(ctx, "x.mc")
	assert.NoError(err)
	assert.Equal(created.ID, actual.ID)
	assert.True(actual.Compressed)
	assert.Equal([]byte{1, 2, 3}, actual.Data)
}

func Test_Store_UniquePath(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	st, err := NewStore(filepath.Join(t.TempDir(), "cache.db"), nil)
	if !assert.NoError(err) {
		return
	}
	defer st.Close()

	first, err := st.Create(ctx, cache.Entry{Path: "x.mc", Language: "mc", Data: []byte{1}})
	assert.NoError(err)

	_, err = st.Create(ctx, cache.Entry{Path: "x.mc", Language: "mc", Data: []byte{2}})
	assert.ErrorIs(err, cache.ErrConstraintViolation)

	actual, err := st.GetByPath(ctx, "x.mc")
	assert.NoError(err)
	assert.Equal(first.ID, actual.ID)
	assert.Equal([]byte{1}, actual.Data)
}
