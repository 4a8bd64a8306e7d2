package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shenikar/neighborhood_alerts/internal/apperrors"
	"github.com/shenikar/neighborhood_alerts/internal/config"
	"github.com/shenikar/neighborhood_alerts/internal/feed"
	"github.com/shenikar/neighborhood_alerts/internal/models"
	"github.com/shenikar/neighborhood_alerts/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeOffline struct {
	alerts  []*models.Alert
	created []models.AlertDraft
}

func (f *fakeOffline) List(context.Context) ([]*models.Alert, error) { return f.alerts, nil }

func (f *fakeOffline) Create(_ context.Context, d models.AlertDraft) (*models.Alert, error) {
	f.created = append(f.created, d)
	a := &models.Alert{ID: 1718000000000, Type: d.Type, Title: d.Title, Location: d.Location, Comments: []models.Comment{}}
	f.alerts = append([]*models.Alert{a}, f.alerts...)
	return a, nil
}

type fakeSubscription struct {
	once sync.Once
	done chan struct{}
}

func (s *fakeSubscription) Unsubscribe() { s.once.Do(func() { close(s.done) }) }

func (s *fakeSubscription) Done() <-chan struct{} { return s.done }

// fakeSubscriber запоминает обработчик, чтобы тест мог отправлять события
type fakeSubscriber struct {
	mu      sync.Mutex
	table   string
	filter  *feed.Filter
	onEvent func(feed.Event)
	sub     *fakeSubscription
	ready   chan struct{}
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{ready: make(chan struct{}, 1)}
}

func (f *fakeSubscriber) Subscribe(_ context.Context, table string, filter *feed.Filter, onEvent func(feed.Event)) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table, f.filter, f.onEvent = table, filter, onEvent
	f.sub = &fakeSubscription{done: make(chan struct{})}
	f.ready <- struct{}{}
	return f.sub, nil
}

type stubConn bool

func (c stubConn) IsConnected() bool { return bool(c) }

type testEnv struct {
	service    *mocks.MockAlertService
	offline    *fakeOffline
	subscriber *fakeSubscriber
	router     *gin.Engine
}

// newTestHandler создает Handler с мокированным сервисом
func newTestHandler(t *testing.T, connected bool, apiKeys ...string) *testEnv {
	ctrl := gomock.NewController(t)
	env := &testEnv{
		service:    mocks.NewMockAlertService(ctrl),
		offline:    &fakeOffline{},
		subscriber: newFakeSubscriber(),
	}

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{APIKeys: apiKeys}
	handler := NewHandler(env.service, env.offline, env.subscriber, stubConn(connected), logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	env.router = gin.New()
	api := env.router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return env
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestCreateAlert_Success(t *testing.T) {
	env := newTestHandler(t, true)
	reqBody := CreateAlertRequest{
		Type:        "noise",
		Title:       "Loud music",
		Description: "after midnight",
		Location:    &LocationDTO{Lat: 37.5, Lng: 127.0},
	}

	env.service.EXPECT().
		CreateAlert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d models.AlertDraft) (*models.Alert, error) {
			assert.Equal(t, models.AlertTypeNoise, d.Type)
			assert.Equal(t, &models.Location{Lat: 37.5, Lng: 127.0}, d.Location)
			return &models.Alert{ID: 12, Type: d.Type, Title: d.Title, Description: d.Description,
				Location: d.Location, AuthorKey: "secret", Comments: []models.Comment{}}, nil
		})

	w := makeRequest(env.router, http.MethodPost, "/api/v1/alerts", jsonBody(t, reqBody))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp AlertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.ID)
	assert.Equal(t, &LocationDTO{Lat: 37.5, Lng: 127.0}, resp.Location)
	assert.False(t, resp.Offline)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestCreateAlert_OfflineFallback(t *testing.T) {
	env := newTestHandler(t, false)

	env.service.EXPECT().
		CreateAlert(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("service: %w", apperrors.ErrBackendUnavailable))

	w := makeRequest(env.router, http.MethodPost, "/api/v1/alerts",
		jsonBody(t, CreateAlertRequest{Type: "noise", Title: "X", Description: "Y"}))

	require.Equal(t, http.StatusCreated, w.Code)
	var resp AlertResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Offline)
	assert.Equal(t, int64(1718000000000), resp.ID)
	require.Len(t, env.offline.created, 1)
	assert.Equal(t, "X", env.offline.created[0].Title)
}

func TestCreateAlert_ValidationError(t *testing.T) {
	env := newTestHandler(t, true)
	env.service.EXPECT().CreateAlert(gomock.Any(), gomock.Any()).Times(0)

	bodies := []any{
		CreateAlertRequest{Type: "fire", Title: "t", Description: "d"},
		CreateAlertRequest{Type: "noise", Title: "", Description: "d"},
		CreateAlertRequest{Type: "noise", Title: "t", Description: "d", Location: &LocationDTO{Lat: 91, Lng: 0}},
	}
	for _, b := range bodies {
		w := makeRequest(env.router, http.MethodPost, "/api/v1/alerts", jsonBody(t, b))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	w := makeRequest(env.router, http.MethodPost, "/api/v1/alerts", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAlerts_Remote(t *testing.T) {
	env := newTestHandler(t, true)
	created := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

	env.service.EXPECT().ListAlerts(gomock.Any()).Return([]*models.Alert{
		{ID: 2, Type: models.AlertTypeTraffic, CreatedAt: created, Comments: []models.Comment{{ID: 5, AlertID: 2, UserName: "kim"}}},
		{ID: 1, Type: models.AlertTypeOther, CreatedAt: created},
	}, nil)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/alerts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AlertListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Offline)
	require.Len(t, resp.Alerts, 2)
	assert.Equal(t, int64(2), resp.Alerts[0].ID)
	require.Len(t, resp.Alerts[0].Comments, 1)
	assert.Equal(t, "kim", resp.Alerts[0].Comments[0].UserName)
}

func TestListAlerts_OfflineFallback(t *testing.T) {
	env := newTestHandler(t, false)
	env.offline.alerts = []*models.Alert{{ID: 1718000000000, Title: "local", Comments: []models.Comment{}}}

	env.service.EXPECT().ListAlerts(gomock.Any()).Return(nil, apperrors.ErrBackendUnavailable)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/alerts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp AlertListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Offline)
	require.Len(t, resp.Alerts, 1)
	assert.True(t, resp.Alerts[0].Offline)
}

func TestListAlerts_RemoteFailure(t *testing.T) {
	env := newTestHandler(t, true)

	env.service.EXPECT().ListAlerts(gomock.Any()).Return(nil, apperrors.Remote("list_alerts", errors.New("boom")))

	w := makeRequest(env.router, http.MethodGet, "/api/v1/alerts", nil)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"operation_failed"`)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestUpdateAlert_StoredAndExplicitKey(t *testing.T) {
	env := newTestHandler(t, true)
	title := "Edited"

	env.service.EXPECT().
		UpdateAlert(gomock.Any(), int64(4), models.AlertPatch{Title: &title}).
		Return(&models.Alert{ID: 4, Title: title}, nil)
	env.service.EXPECT().
		UpdateAlertWithKey(gomock.Any(), int64(4), models.AlertPatch{Title: &title}, "t2").
		Return(nil, apperrors.ErrPermissionDenied)

	w := makeRequest(env.router, http.MethodPut, "/api/v1/alerts/4", jsonBody(t, UpdateAlertRequest{Title: &title}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Edited"`)

	w = makeRequest(env.router, http.MethodPut, "/api/v1/alerts/4", jsonBody(t, UpdateAlertRequest{Title: &title}),
		map[string]string{AuthorKeyHeader: "t2"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"permission_denied"`)
}

func TestUpdateAlert_BadInput(t *testing.T) {
	env := newTestHandler(t, true)
	badType := "fire"

	w := makeRequest(env.router, http.MethodPut, "/api/v1/alerts/abc", jsonBody(t, UpdateAlertRequest{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = makeRequest(env.router, http.MethodPut, "/api/v1/alerts/4", jsonBody(t, UpdateAlertRequest{Type: &badType}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteAlert(t *testing.T) {
	env := newTestHandler(t, true)

	env.service.EXPECT().DeleteAlert(gomock.Any(), int64(9)).Return(&models.Alert{ID: 9}, nil)
	env.service.EXPECT().DeleteAlertWithKey(gomock.Any(), int64(8), "k").Return(&models.Alert{ID: 8}, nil)
	env.service.EXPECT().DeleteAlert(gomock.Any(), int64(7)).
		Return(nil, fmt.Errorf("service: %w", apperrors.ErrBackendUnavailable))

	w := makeRequest(env.router, http.MethodDelete, "/api/v1/alerts/9", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = makeRequest(env.router, http.MethodDelete, "/api/v1/alerts/8", nil, map[string]string{AuthorKeyHeader: "k"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = makeRequest(env.router, http.MethodDelete, "/api/v1/alerts/7", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCheckPermission(t *testing.T) {
	env := newTestHandler(t, true)

	env.service.EXPECT().IsAuthor(gomock.Any(), int64(3)).Return(true)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/alerts/3/permission", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"alert_id":3,"is_author":true}`, w.Body.String())
}

func TestComments(t *testing.T) {
	env := newTestHandler(t, true)

	env.service.EXPECT().AddComment(gomock.Any(), int64(3), "kim", "careful").
		Return(&models.Comment{ID: 1, AlertID: 3, UserName: "kim", Content: "careful"}, nil)
	env.service.EXPECT().ListComments(gomock.Any(), int64(3)).
		Return([]models.Comment{{ID: 1, AlertID: 3, UserName: "kim", Content: "careful"}}, nil)
	env.service.EXPECT().LastNickname(gomock.Any()).Return("kim")

	w := makeRequest(env.router, http.MethodPost, "/api/v1/alerts/3/comments",
		jsonBody(t, CreateCommentRequest{UserName: "kim", Content: "careful"}))
	require.Equal(t, http.StatusCreated, w.Code)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/alerts/3/comments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []CommentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	require.Len(t, comments, 1)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/profile/nickname", nil)
	assert.JSONEq(t, `{"user_name":"kim"}`, w.Body.String())
}

func TestAddComment_BlankFieldsRejected(t *testing.T) {
	env := newTestHandler(t, true)
	env.service.EXPECT().AddComment(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(env.router, http.MethodPost, "/api/v1/alerts/3/comments",
		jsonBody(t, CreateCommentRequest{UserName: "   ", Content: "hi"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartImage(t *testing.T, contentType string, data []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="photo.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	env := newTestHandler(t, true)
	body, ct := multipartImage(t, "image/jpeg", []byte("jpeg-bytes"))

	env.service.EXPECT().
		UploadImage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u models.ImageUpload) (string, error) {
			assert.Equal(t, "photo.jpg", u.Name)
			assert.Equal(t, "image/jpeg", u.ContentType)
			assert.Equal(t, int64(10), u.Size)
			return "https://cdn.example.com/alert-images/alerts/2024/06/10/x.jpg", nil
		})

	w := makeRequest(env.router, http.MethodPost, "/api/v1/uploads", body, map[string]string{"Content-Type": ct})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "/alert-images/alerts/")
}

func TestUploadImage_ValidationError(t *testing.T) {
	env := newTestHandler(t, true)
	body, ct := multipartImage(t, "application/pdf", []byte("%PDF"))

	env.service.EXPECT().UploadImage(gomock.Any(), gomock.Any()).
		Return("", apperrors.Validation("image", "must be an image file"))

	w := makeRequest(env.router, http.MethodPost, "/api/v1/uploads", body, map[string]string{"Content-Type": ct})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must be an image file")
}

func TestSystemRoutes(t *testing.T) {
	env := newTestHandler(t, false)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/system/health", nil)
	assert.JSONEq(t, `{"status":"ok","backend_connected":false}`, w.Body.String())

	w = makeRequest(env.router, http.MethodGet, "/api/v1/location/fallback", nil)
	assert.JSONEq(t, `{"lat":37.5665,"lng":126.978}`, w.Body.String())
}

func TestAPIKeyAuthMiddleware(t *testing.T) {
	env := newTestHandler(t, true, "test-api-key")
	env.service.EXPECT().LastNickname(gomock.Any()).Return("").Times(3)

	w := makeRequest(env.router, http.MethodGet, "/api/v1/profile/nickname", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/profile/nickname", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/profile/nickname", nil, map[string]string{"X-API-Key": "test-api-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/profile/nickname", nil, map[string]string{"Authorization": "Bearer test-api-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(env.router, http.MethodGet, "/api/v1/profile/nickname?api_key=test-api-key", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// health-check доступен без ключа
	w = makeRequest(env.router, http.MethodGet, "/api/v1/system/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func dialStream(t *testing.T, router *gin.Engine, path string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	return ws
}

func TestStreamComments_ForwardsEventsInOrder(t *testing.T) {
	env := newTestHandler(t, true)
	ws := dialStream(t, env.router, "/api/v1/realtime/alerts/7/comments")

	var status StatusMessage
	require.NoError(t, ws.ReadJSON(&status))
	assert.Equal(t, "subscribed", status.Status)
	<-env.subscriber.ready
	assert.Equal(t, feed.TableComments, env.subscriber.table)
	assert.Equal(t, feed.ByAlert(7), env.subscriber.filter)

	env.subscriber.onEvent(feed.Event{Type: feed.EventInsert, Table: feed.TableComments,
		New: &models.Comment{ID: 1, AlertID: 7, Content: "first"}})
	env.subscriber.onEvent(feed.Event{Type: feed.EventInsert, Table: feed.TableComments,
		New: &models.Comment{ID: 2, AlertID: 7, Content: "second"}})
	env.subscriber.onEvent(feed.Event{Type: feed.EventDelete, Table: feed.TableComments,
		Old: &models.Comment{ID: 1, AlertID: 7}})

	var got []map[string]any
	for i := 0; i < 3; i++ {
		var msg map[string]any
		require.NoError(t, ws.ReadJSON(&msg))
		got = append(got, msg)
	}
	assert.Equal(t, "INSERT", got[0]["eventType"])
	assert.Equal(t, "first", got[0]["new"].(map[string]any)["content"])
	assert.Equal(t, "second", got[1]["new"].(map[string]any)["content"])
	assert.Equal(t, "DELETE", got[2]["eventType"])
	assert.Nil(t, got[2]["new"])
}

func TestEventMessage_MissingRecordsAreNull(t *testing.T) {
	insert, err := json.Marshal(eventMessage(feed.Event{Type: feed.EventInsert, Table: feed.TableComments,
		New: &models.Comment{ID: 1, AlertID: 7, Content: "first"}}))
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(insert, &msg))
	assert.Contains(t, msg, "old")
	assert.Nil(t, msg["old"])
	assert.Equal(t, "comments", msg["table"])

	remove, err := json.Marshal(eventMessage(feed.Event{Type: feed.EventDelete, Table: feed.TableAlerts,
		Old: &models.Alert{ID: 3}}))
	require.NoError(t, err)
	assert.Contains(t, string(remove), `"new":null`)
}

func TestStreamAlerts_ClosesWhenFeedEnds(t *testing.T) {
	env := newTestHandler(t, true)
	ws := dialStream(t, env.router, "/api/v1/realtime/alerts")

	var status StatusMessage
	require.NoError(t, ws.ReadJSON(&status))
	<-env.subscriber.ready
	env.subscriber.sub.Unsubscribe()

	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseTryAgainLater, closeErr.Code)
}

func TestStreamAlerts_Offline(t *testing.T) {
	env := newTestHandler(t, false)
	ws := dialStream(t, env.router, "/api/v1/realtime/alerts")

	var status StatusMessage
	require.NoError(t, ws.ReadJSON(&status))
	assert.Equal(t, "offline", status.Status)

	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}
