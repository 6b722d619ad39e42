package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wilbur-realtime/internal/realtime"
)

func newNotifyRouter(registry *realtime.Registry, serviceToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewNotifyHandler(registry, serviceToken)
	r := gin.New()
	r.POST("/internal/v1/notify", h.HandleNotify)
	r.GET("/internal/v1/metrics", h.HandleMetrics)
	return r
}

func postNotify(router *gin.Engine, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/v1/notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNotifyDeliversToSubscriber(t *testing.T) {
	registry := realtime.NewRegistry()
	channel := "room:" + uuid.NewString() + ":chat"
	ch, err := realtime.ParseChannel(channel)
	require.NoError(t, err)

	q := realtime.NewQueue(8)
	registry.Subscribe(ch, q)

	router := newNotifyRouter(registry, "s3cret")
	w := postNotify(router, "s3cret", `{"channel":"`+channel+`","event":"message_created","payload":{"id":"m1"}}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case data := <-q.C():
		var frame realtime.ServerFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, realtime.FrameEvent, frame.Type)
		assert.Equal(t, channel, frame.Channel)
		assert.Equal(t, "message_created", frame.Event)
		assert.JSONEq(t, `{"id":"m1"}`, string(frame.Payload))
	default:
		t.Fatal("subscriber queue received nothing")
	}
}

func TestNotifyAcceptsChannelWithoutSubscribers(t *testing.T) {
	router := newNotifyRouter(realtime.NewRegistry(), "")
	w := postNotify(router, "", `{"channel":"room:`+uuid.NewString()+`:alerts","event":"room_updated"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestNotifyRejectsBadServiceToken(t *testing.T) {
	router := newNotifyRouter(realtime.NewRegistry(), "s3cret")

	w := postNotify(router, "wrong", `{"channel":"dm:`+uuid.NewString()+`","event":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postNotify(router, "", `{"channel":"dm:`+uuid.NewString()+`","event":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotifyRejectsBadRequests(t *testing.T) {
	router := newNotifyRouter(realtime.NewRegistry(), "")

	w := postNotify(router, "", `{"channel":"room:nope:chat","event":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "malformed channel")

	w = postNotify(router, "", `{"channel":"room:`+uuid.NewString()+`:chat"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing event")

	w = postNotify(router, "", `{"event":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, "missing channel")

	w = postNotify(router, "", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := realtime.NewRegistry()
	router := newNotifyRouter(registry, "s3cret")

	req := httptest.NewRequest(http.MethodGet, "/internal/v1/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/internal/v1/metrics", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var snapshot map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Contains(t, snapshot, "active_sessions")
	assert.Contains(t, snapshot, "broadcasts_total")
}
