package feed

import "github.com/shenikar/neighborhood_alerts/internal/models"

// MergeAlertEvent применяет событие к списку сообщений (новые сначала).
// Слияние идемпотентно по id: повторное событие не создает дубликатов,
// а UPDATE для неизвестной записи добавляет ее.
func MergeAlertEvent(alerts []*models.Alert, ev Event) []*models.Alert {
	switch ev.Type {
	case EventInsert, EventUpdate:
		incoming, ok := ev.NewAlert()
		if !ok {
			return alerts
		}
		for i, a := range alerts {
			if a.ID == incoming.ID {
				// комментарии в событии alerts не передаются
				if len(incoming.Comments) == 0 {
					incoming.Comments = a.Comments
				}
				out := make([]*models.Alert, len(alerts))
				copy(out, alerts)
				out[i] = incoming
				return out
			}
		}
		out := make([]*models.Alert, 0, len(alerts)+1)
		out = append(out, incoming)
		return append(out, alerts...)
	case EventDelete:
		id, ok := ev.RecordID()
		if !ok {
			return alerts
		}
		out := make([]*models.Alert, 0, len(alerts))
		for _, a := range alerts {
			if a.ID != id {
				out = append(out, a)
			}
		}
		return out
	}
	return alerts
}

// MergeCommentEvent применяет событие к списку комментариев (старые сначала)
func MergeCommentEvent(comments []models.Comment, ev Event) []models.Comment {
	switch ev.Type {
	case EventInsert:
		incoming, ok := ev.NewComment()
		if !ok {
			return comments
		}
		for _, c := range comments {
			if c.ID == incoming.ID {
				return comments
			}
		}
		out := make([]models.Comment, 0, len(comments)+1)
		out = append(out, comments...)
		return append(out, *incoming)
	case EventDelete:
		id, ok := ev.RecordID()
		if !ok {
			return comments
		}
		out := make([]models.Comment, 0, len(comments))
		for _, c := range comments {
			if c.ID != id {
				out = append(out, c)
			}
		}
		return out
	}
	return comments
}
