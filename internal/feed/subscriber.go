// Package feed доставляет изменения таблиц backend подписчикам в реальном времени.
package feed

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/shenikar/neighborhood_alerts/internal/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
)

// Source открывает поток сырых событий таблицы. Канал закрывается при отмене ctx
// или потере соединения; порядок сообщений - порядок публикации backend.
type Source interface {
	Stream(ctx context.Context, table string) (<-chan []byte, error)
}

// Connectivity сообщает, настроен ли backend
type Connectivity interface {
	IsConnected() bool
}

// Filter ограничивает события одной родительской записью (column = value)
type Filter struct {
	Column string
	Value  string
}

// ByAlert - фильтр комментариев одного сообщения
func ByAlert(alertID int64) *Filter {
	return &Filter{Column: "alert_id", Value: strconv.FormatInt(alertID, 10)}
}

func (f *Filter) matches(raw *rawEvent) bool {
	if f == nil {
		return true
	}
	for _, rec := range []map[string]any{raw.Record, raw.OldRecord} {
		if rec == nil {
			continue
		}
		if v, ok := rec[f.Column]; ok && cast.ToString(v) == f.Value {
			return true
		}
	}
	return false
}

// Subscription - открытая подписка. Unsubscribe идемпотентен и безопасен
// после закрытия потока; Done закрывается, когда доставка прекращена.
type Subscription interface {
	Unsubscribe()
	Done() <-chan struct{}
}

// Subscriber открывает по одному логическому каналу на каждый вызов Subscribe
type Subscriber struct {
	conn   Connectivity
	source Source
	logger *logrus.Logger

	warnOnce sync.Once
}

// NewSubscriber создает Subscriber. source может быть nil, если backend не настроен.
func NewSubscriber(conn Connectivity, source Source, logger *logrus.Logger) *Subscriber {
	return &Subscriber{conn: conn, source: source, logger: logger}
}

// Subscribe начинает доставку событий table в onEvent. onEvent вызывается из одной
// горутины строго в порядке публикации. Без подключения к backend возвращается
// пустая подписка и предупреждение пишется в лог один раз.
func (s *Subscriber) Subscribe(ctx context.Context, table string, filter *Filter, onEvent func(Event)) (Subscription, error) {
	if !s.conn.IsConnected() || s.source == nil {
		s.warnOnce.Do(func() {
			s.logger.WithField("table", table).Warn("Backend is not configured, realtime updates are disabled")
		})
		return noopSubscription{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.source.Stream(ctx, table)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("feed: failed to open stream for %s: %w", table, err)
	}

	sub := &channelSubscription{cancel: cancel, done: make(chan struct{})}
	log := s.logger.WithFields(logrus.Fields{"service": "feed", "table": table})
	if filter != nil {
		log = log.WithField(filter.Column, filter.Value)
	}

	metrics.ActiveSubscriptions.Inc()
	go func() {
		defer close(sub.done)
		defer metrics.ActiveSubscriptions.Dec()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-stream:
				if !ok {
					log.Debug("Change stream closed")
					return
				}
				raw, err := parseRaw(payload)
				if err != nil {
					log.WithError(err).Warn("Dropping malformed change event")
					continue
				}
				if raw.Table != table || !filter.matches(raw) {
					continue
				}
				ev, err := raw.normalize()
				if err != nil {
					log.WithError(err).Warn("Dropping change event that could not be normalized")
					continue
				}
				// после Unsubscribe события не доставляются
				if ctx.Err() != nil {
					return
				}
				metrics.ObserveFeedEvent(table, string(ev.Type))
				onEvent(ev)
			}
		}
	}()
	return sub, nil
}

type channelSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (c *channelSubscription) Unsubscribe() {
	c.once.Do(c.cancel)
}

func (c *channelSubscription) Done() <-chan struct{} {
	return c.done
}

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}

func (noopSubscription) Done() <-chan struct{} { return closedDone }
