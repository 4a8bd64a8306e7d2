package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/sirupsen/logrus"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	sendBuffer   = 64
	maxReadBytes = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// шлюз слушает только локальный UI
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventMessage - событие ленты в websocket; new и old всегда присутствуют, отсутствующая запись - null
// @Description Событие ленты изменений
type EventMessage struct {
	EventType string `json:"eventType"`
	Table     string `json:"table"`
	New       any    `json:"new"`
	Old       any    `json:"old"`
}

// StatusMessage - служебный статус потока (subscribed, offline)
// @Description Статус потока изменений
type StatusMessage struct {
	Status string `json:"status"`
}

func eventMessage(ev feed.Event) EventMessage {
	msg := EventMessage{EventType: string(ev.Type), Table: ev.Table}
	if a, ok := ev.NewAlert(); ok {
		msg.New = ModelToAlertResponse(a)
	} else if cm, ok := ev.NewComment(); ok {
		msg.New = ModelToCommentResponse(*cm)
	}
	if a, ok := ev.OldAlert(); ok {
		msg.Old = ModelToAlertResponse(a)
	} else if cm, ok := ev.OldComment(); ok {
		msg.Old = ModelToCommentResponse(*cm)
	}
	return msg
}

// @Summary Alert changes stream
// @Description Websocket stream of INSERT/UPDATE/DELETE events on alerts, in backend order.
// @Tags Realtime
// @Security ApiKeyAuth
// @Success 101 {object} EventMessage
// @Router /realtime/alerts [get]
func (h *Handler) streamAlerts(c *gin.Context) {
	h.stream(c, feed.TableAlerts, nil)
}

// @Summary Comment changes stream
// @Description Websocket stream of comment events for one alert.
// @Tags Realtime
// @Security ApiKeyAuth
// @Param id path int true "Alert ID"
// @Success 101 {object} EventMessage
// @Router /realtime/alerts/{id}/comments [get]
func (h *Handler) streamComments(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	h.stream(c, feed.TableComments, feed.ByAlert(id))
}

func (h *Handler) stream(c *gin.Context, table string, filter *feed.Filter) {
	log := h.logger.WithFields(logrus.Fields{"method": "stream", "table": table})

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !h.conn.IsConnected() {
		// подписка без backend - пустая; UI остается в офлайн-режиме
		_, _ = h.subscriber.Subscribe(ctx, table, filter, func(feed.Event) {})
		writeJSON(ws, StatusMessage{Status: "offline"})
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "backend not configured"),
			time.Now().Add(writeWait))
		return
	}

	send := make(chan []byte, sendBuffer)
	sub, err := h.subscriber.Subscribe(ctx, table, filter, func(ev feed.Event) {
		payload, err := json.Marshal(eventMessage(ev))
		if err != nil {
			log.WithError(err).Error("Failed to encode change event")
			return
		}
		select {
		case send <- payload:
		default:
			// медленный клиент отключается, пропусков в потоке не бывает
			log.Warn("Realtime client is too slow, closing stream")
			cancel()
		}
	})
	if err != nil {
		log.WithError(err).Error("Failed to subscribe to change feed")
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Unsubscribe()
	writeJSON(ws, StatusMessage{Status: "subscribed"})
	log.Info("Realtime client subscribed")

	go readPump(ws, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			log.Info("Realtime client disconnected")
			return
		case <-sub.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "change stream closed"),
				time.Now().Add(writeWait))
			log.Warn("Change stream ended, closing realtime client")
			return
		case payload := <-send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.WithError(err).Warn("Failed to write realtime message")
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump читает управляющие кадры; любая ошибка чтения завершает поток
func readPump(ws *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	ws.SetReadLimit(maxReadBytes)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(ws *websocket.Conn, msg any) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteJSON(msg)
}
