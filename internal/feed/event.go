package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/spf13/cast"
)

// Имена таблиц, для которых backend публикует изменения
const (
	TableAlerts   = "alerts"
	TableComments = "comments"
)

// EventType - вид изменения строки
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event - нормализованное событие ленты. Для alerts координаты уже собраны в Location,
// author_key не передается.
type Event struct {
	Type  EventType     `json:"eventType"`
	Table string        `json:"table"`
	New   models.Record `json:"new"`
	Old   models.Record `json:"old"`
}

// NewAlert возвращает новую версию сообщения, если событие из таблицы alerts
func (e Event) NewAlert() (*models.Alert, bool) {
	a, ok := e.New.(*models.Alert)
	return a, ok && a != nil
}

// OldAlert возвращает прежнюю версию сообщения
func (e Event) OldAlert() (*models.Alert, bool) {
	a, ok := e.Old.(*models.Alert)
	return a, ok && a != nil
}

// NewComment возвращает новый комментарий, если событие из таблицы comments
func (e Event) NewComment() (*models.Comment, bool) {
	c, ok := e.New.(*models.Comment)
	return c, ok && c != nil
}

// OldComment возвращает прежнюю версию комментария
func (e Event) OldComment() (*models.Comment, bool) {
	c, ok := e.Old.(*models.Comment)
	return c, ok && c != nil
}

// RecordID возвращает id затронутой строки (new, иначе old)
func (e Event) RecordID() (int64, bool) {
	if e.New != nil {
		return e.New.RecordID(), true
	}
	if e.Old != nil {
		return e.Old.RecordID(), true
	}
	return 0, false
}

// rawEvent - полезная нагрузка, которую публикует триггер backend.
// Truncated - записи слишком велики для NOTIFY и содержат только ключи.
type rawEvent struct {
	Type      string         `json:"type"`
	Table     string         `json:"table"`
	Truncated bool           `json:"truncated,omitempty"`
	Record    map[string]any `json:"record"`
	OldRecord map[string]any `json:"old_record"`
}

func parseRaw(payload []byte) (*rawEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var raw rawEvent
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("feed: malformed payload: %w", err)
	}
	switch EventType(raw.Type) {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return nil, fmt.Errorf("feed: unknown event type %q", raw.Type)
	}
	return &raw, nil
}

func (r *rawEvent) normalize() (Event, error) {
	ev := Event{Type: EventType(r.Type), Table: r.Table}

	decode := decodeComment
	switch r.Table {
	case TableAlerts:
		decode = decodeAlert
	case TableComments:
	default:
		return Event{}, fmt.Errorf("feed: unsupported table %q", r.Table)
	}

	var err error
	if r.Record != nil {
		if ev.New, err = decode(r.Record); err != nil {
			return Event{}, fmt.Errorf("feed: new record: %w", err)
		}
	}
	if r.OldRecord != nil {
		if ev.Old, err = decode(r.OldRecord); err != nil {
			return Event{}, fmt.Errorf("feed: old record: %w", err)
		}
	}
	return ev, nil
}

// Decode разбирает полезную нагрузку backend в Event
func Decode(payload []byte) (Event, error) {
	raw, err := parseRaw(payload)
	if err != nil {
		return Event{}, err
	}
	return raw.normalize()
}

func decodeAlert(m map[string]any) (models.Record, error) {
	id, err := cast.ToInt64E(m["id"])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	lat, err := optionalFloat(m["lat"])
	if err != nil {
		return nil, fmt.Errorf("lat: %w", err)
	}
	lng, err := optionalFloat(m["lng"])
	if err != nil {
		return nil, fmt.Errorf("lng: %w", err)
	}
	createdAt, err := optionalTime(m["created_at"])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	alert := &models.Alert{
		ID:          id,
		Type:        models.AlertType(cast.ToString(m["type"])),
		Title:       cast.ToString(m["title"]),
		Description: cast.ToString(m["description"]),
		Location:    models.JoinLocation(lat, lng),
		CreatedAt:   createdAt,
		Comments:    []models.Comment{},
	}
	if v, ok := m["image_url"]; ok && v != nil {
		url := cast.ToString(v)
		alert.ImageURL = &url
	}
	return alert, nil
}

func decodeComment(m map[string]any) (models.Record, error) {
	id, err := cast.ToInt64E(m["id"])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	createdAt, err := optionalTime(m["created_at"])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}
	comment := &models.Comment{
		ID:        id,
		UserName:  cast.ToString(m["user_name"]),
		Content:   cast.ToString(m["content"]),
		CreatedAt: createdAt,
	}
	if v, ok := m["alert_id"]; ok && v != nil {
		if comment.AlertID, err = cast.ToInt64E(v); err != nil {
			return nil, fmt.Errorf("alert_id: %w", err)
		}
	}
	return comment, nil
}

func optionalFloat(v any) (*float64, error) {
	if v == nil {
		return nil, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func optionalTime(v any) (time.Time, error) {
	if v == nil {
		return time.Time{}, nil
	}
	return cast.ToTimeE(v)
}
