package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/amoylab/contentd/pkg/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestApp_HandleHello(t *testing.T) {
	r := newTestRouter()
	h := NewApp(new(mockPinger), zap.NewNop())
	r.GET("/", h.HandleHello)

	w := doJSON(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello, World.", w.Body.String())
}

func TestApp_HandleHealth(t *testing.T) {
	db := new(mockPinger)
	db.On("Ping", mock.Anything).Return(nil).Once()
	db.On("Ping", mock.Anything).Return(errors.New("connection refused")).Once()

	r := newTestRouter()
	h := NewApp(db, zap.NewNop())
	r.GET("/health", h.HandleHealth)

	w := doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var info HealthInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, HealthInfo{Version: version.Get(), DB: "OK"}, info)

	w = doJSON(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "connection refused", info.DB)
	db.AssertExpectations(t)
}
