package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewCache(mr.Addr())
	require.NoError(t, err)
	return c
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	err := c.Set(ctx, "testKey", "testValue", 10*time.Minute)
	assert.NoError(t, err)

	var got string
	err = c.Get(ctx, "testKey", &got)
	assert.NoError(t, err)
	assert.Equal(t, "testValue", got)
}

func TestGetMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	var got string
	err := c.Get(ctx, "neverSet", &got)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	err := c.Set(ctx, "toDelete", "v", time.Minute)
	assert.NoError(t, err)

	err = c.Delete(ctx, "toDelete")
	assert.NoError(t, err)

	var got string
	err = c.Get(ctx, "toDelete", &got)
	assert.NoError(t, err)
	assert.Empty(t, got)
}

func TestStructRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	type snapshot struct {
		CompanyID string
		Name      string
	}
	in := []snapshot{{CompanyID: "cmp_1", Name: "ACME"}, {CompanyID: "cmp_2", Name: "Beta"}}

	err := c.Set(ctx, "snap", in, 5*time.Minute)
	assert.NoError(t, err)

	var out []snapshot
	err = c.Get(ctx, "snap", &out)
	assert.NoError(t, err)
	assert.Equal(t, in, out)
}
