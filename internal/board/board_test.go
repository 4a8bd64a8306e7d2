package board

import (
	"bytes"
	"testing"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_ApplySequence(t *testing.T) {
	b := New([]*models.Alert{{ID: 1, Title: "first", Comments: []models.Comment{}}})

	events := []feed.Event{
		{Type: feed.EventInsert, Table: feed.TableAlerts, New: &models.Alert{ID: 2, Title: "second"}},
		{Type: feed.EventInsert, Table: feed.TableComments, New: &models.Comment{ID: 10, AlertID: 1, Content: "a"}},
		{Type: feed.EventInsert, Table: feed.TableComments, New: &models.Comment{ID: 10, AlertID: 1, Content: "a"}},
		{Type: feed.EventUpdate, Table: feed.TableAlerts, New: &models.Alert{ID: 1, Title: "edited"}},
		{Type: feed.EventInsert, Table: feed.TableComments, New: &models.Comment{ID: 11, AlertID: 2, Content: "b"}},
		{Type: feed.EventDelete, Table: feed.TableAlerts, Old: &models.Alert{ID: 2}},
	}
	for _, ev := range events {
		b.Apply(ev)
	}

	alerts := b.Snapshot()
	require.Len(t, alerts, 1)
	assert.Equal(t, "edited", alerts[0].Title)
	require.Len(t, alerts[0].Comments, 1)
	assert.Equal(t, "a", alerts[0].Comments[0].Content)
}

func TestBoard_CommentDelete(t *testing.T) {
	b := New([]*models.Alert{{ID: 1, Comments: []models.Comment{{ID: 5, AlertID: 1}, {ID: 6, AlertID: 1}}}})

	b.Apply(feed.Event{Type: feed.EventDelete, Table: feed.TableComments, Old: &models.Comment{ID: 5, AlertID: 1}})

	alerts := b.Snapshot()
	require.Len(t, alerts[0].Comments, 1)
	assert.Equal(t, int64(6), alerts[0].Comments[0].ID)
}

func TestBoard_Render(t *testing.T) {
	b := New([]*models.Alert{{
		ID: 3, Type: models.AlertTypeNoise, Title: "Loud music",
		Location:  &models.Location{Lat: 37.5665, Lng: 126.978},
		CreatedAt: time.Now(),
	}})

	var buf bytes.Buffer
	require.NoError(t, b.Render(&buf))

	out := buf.String()
	assert.Contains(t, out, "Loud music")
	assert.Contains(t, out, "37.56650,126.97800")
	assert.Contains(t, out, "noise")
}
