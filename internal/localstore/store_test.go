package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "nested", "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, KeyUsername)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, KeyUsername, []byte("neighbor")))
			got, err := s.Get(ctx, KeyUsername)
			require.NoError(t, err)
			assert.Equal(t, "neighbor", string(got))

			require.NoError(t, s.Set(ctx, KeyUsername, []byte("renamed")))
			got, err = s.Get(ctx, KeyUsername)
			require.NoError(t, err)
			assert.Equal(t, "renamed", string(got))

			require.NoError(t, s.Delete(ctx, KeyUsername))
			require.NoError(t, s.Delete(ctx, KeyUsername))
			_, err = s.Get(ctx, KeyUsername)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var m map[string]string
	found, err := GetJSON(ctx, s, KeyAuthorKeys, &m)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, s, KeyAuthorKeys, map[string]string{"1": "abc"}))
	found, err = GetJSON(ctx, s, KeyAuthorKeys, &m)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", m["1"])

	require.NoError(t, s.Set(ctx, KeyOfflineAlerts, []byte("{broken")))
	var arr []int
	_, err = GetJSON(ctx, s, KeyOfflineAlerts, &arr)
	assert.ErrorContains(t, err, "failed to decode")
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "local.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyAuthorKeys, []byte(`{"42":"key"}`)))
	require.NoError(t, s.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, KeyAuthorKeys)
	require.NoError(t, err)
	assert.JSONEq(t, `{"42":"key"}`, string(got))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, 1, s.Writes())
}
