// internal/repository/storetest/contract.go
package storetest

import (
	"context"
	"testing"

	xerrors "fluencr-service/internal/pkg/errors"
	"fluencr-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Contract checks the compare-and-swap behaviour every DocumentStore must
// share. key must not exist when it is called.
func Contract(t *testing.T, store repository.DocumentStore, key string) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, key)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	v1, err := store.Put(ctx, key, []byte(`{"a":1}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1)

	_, err = store.Put(ctx, key, []byte(`{"a":2}`), 0)
	assert.ErrorIs(t, err, xerrors.ErrVersionConflict, "create over existing key")

	v2, err := store.Put(ctx, key, []byte(`{"a":2}`), v1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2)

	_, err = store.Put(ctx, key, []byte(`{"a":3}`), v1)
	assert.ErrorIs(t, err, xerrors.ErrVersionConflict, "stale version")

	doc, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(doc.Data))
	assert.Equal(t, v2, doc.Version)

	require.NoError(t, store.Delete(ctx, key))
	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = store.Put(ctx, key, []byte(`{}`), v2)
	assert.ErrorIs(t, err, xerrors.ErrVersionConflict, "update of a deleted key")

	// Versions keep counting across a delete, so a writer holding a
	// version from before the delete cannot overwrite the recreated key.
	v3, err := store.Put(ctx, key, []byte(`{"a":"new"}`), 0)
	require.NoError(t, err)
	assert.Greater(t, v3, v2)

	_, err = store.Put(ctx, key, []byte(`{"a":"stale"}`), v1)
	assert.ErrorIs(t, err, xerrors.ErrVersionConflict, "write from before the delete")

	doc, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"new"}`, string(doc.Data))
	assert.Equal(t, v3, doc.Version)
}
