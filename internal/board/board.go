// Package board держит в памяти актуальный список сообщений, собранный из
// начальной выборки и событий ленты изменений.
package board

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/shenikar/neighborhood_alerts/internal/models"
)

// Board - список сообщений (новые сначала) с комментариями (старые сначала)
type Board struct {
	mu     sync.RWMutex
	alerts []*models.Alert
}

// New создает доску из начальной выборки
func New(initial []*models.Alert) *Board {
	alerts := make([]*models.Alert, len(initial))
	copy(alerts, initial)
	return &Board{alerts: alerts}
}

// Apply применяет событие. Повторная доставка события не меняет результат.
func (b *Board) Apply(ev feed.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Table {
	case feed.TableAlerts:
		b.alerts = feed.MergeAlertEvent(b.alerts, ev)
	case feed.TableComments:
		alertID, ok := commentAlertID(ev)
		if !ok {
			return
		}
		for i, a := range b.alerts {
			if a.ID != alertID {
				continue
			}
			updated := *a
			updated.Comments = feed.MergeCommentEvent(a.Comments, ev)
			b.alerts[i] = &updated
			return
		}
	}
}

func commentAlertID(ev feed.Event) (int64, bool) {
	if c, ok := ev.NewComment(); ok {
		return c.AlertID, true
	}
	if c, ok := ev.OldComment(); ok && c.AlertID != 0 {
		return c.AlertID, true
	}
	return 0, false
}

// Snapshot возвращает копию текущего списка
func (b *Board) Snapshot() []*models.Alert {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*models.Alert, len(b.alerts))
	copy(out, b.alerts)
	return out
}

// Render печатает доску таблицей
func (b *Board) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tLOCATION\tCOMMENTS\tCREATED")
	for _, a := range b.Snapshot() {
		loc := "-"
		if a.Location != nil {
			loc = fmt.Sprintf("%.5f,%.5f", a.Location.Lat, a.Location.Lng)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			a.ID, a.Type, a.Title, loc, len(a.Comments), a.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
