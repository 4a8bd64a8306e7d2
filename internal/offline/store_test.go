package offline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/localstore"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(kv localstore.Store, now time.Time) *Store {
	logger, _ := test.NewNullLogger()
	s := NewStore(kv, logger)
	s.now = func() time.Time { return now }
	return s
}

func TestList_EmptyWhenNothingStored(t *testing.T) {
	s := newTestStore(localstore.NewMemoryStore(), time.Now())

	alerts, err := s.List(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestCreate_OfflineAlert(t *testing.T) {
	kv := localstore.NewMemoryStore()
	now := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	s := newTestStore(kv, now)

	alert, err := s.Create(context.Background(), models.AlertDraft{
		Type:     models.AlertTypeNoise,
		Title:    "Loud music",
		Location: &models.Location{Lat: 37.5665, Lng: 126.978},
	})

	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), alert.ID)
	assert.Equal(t, now, alert.CreatedAt)
	assert.Empty(t, alert.AuthorKey)

	raw, err := kv.Get(context.Background(), localstore.KeyOfflineAlerts)
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 1)
	assert.EqualValues(t, now.UnixMilli(), stored[0]["id"])
	assert.Equal(t, "Loud music", stored[0]["title"])
	assert.NotContains(t, stored[0], "author_key")
	assert.NotContains(t, stored[0], "AuthorKey")

	_, err = kv.Get(context.Background(), localstore.KeyAuthorKeys)
	assert.ErrorIs(t, err, localstore.ErrNotFound)
}

func TestCreate_PrependsAndPersists(t *testing.T) {
	kv := localstore.NewMemoryStore()
	t0 := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	_, err := newTestStore(kv, t0).Create(context.Background(), models.AlertDraft{Type: models.AlertTypeOther, Title: "first"})
	require.NoError(t, err)
	_, err = newTestStore(kv, t0.Add(time.Minute)).Create(context.Background(), models.AlertDraft{Type: models.AlertTypeTraffic, Title: "second"})
	require.NoError(t, err)

	alerts, err := newTestStore(kv, t0).List(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "second", alerts[0].Title)
	assert.Equal(t, "first", alerts[1].Title)
	assert.NotNil(t, alerts[1].Comments)
	assert.Equal(t, 2, kv.Writes())
}

func TestCreate_CorruptArray(t *testing.T) {
	kv := localstore.NewMemoryStore()
	require.NoError(t, kv.Set(context.Background(), localstore.KeyOfflineAlerts, []byte("{broken")))
	s := newTestStore(kv, time.Now())

	_, err := s.Create(context.Background(), models.AlertDraft{Title: "x"})

	assert.Error(t, err)
}
