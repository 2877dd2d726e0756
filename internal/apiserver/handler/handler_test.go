package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amoylab/contentd/internal/apiserver/database"
	"github.com/amoylab/contentd/internal/common/config"
	"github.com/amoylab/contentd/internal/common/errorx"
	"github.com/amoylab/contentd/internal/notes"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	r := gin.New()
	r.Use(errorx.NewErrorHandler(zap.NewNop()).ErrorMiddleware())
	return r
}

func newTestDB(t *testing.T) database.Database {
	t.Helper()
	db, err := database.NewSQLite(&config.DatabaseConfig{Type: "sqlite", DBName: ":memory:", Migrate: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockNotePusher struct {
	mock.Mock
}

func (m *mockNotePusher) Push(ctx context.Context, slug, content string, appendMode bool) notes.Result {
	return m.Called(ctx, slug, content, appendMode).Get(0).(notes.Result)
}

// failingDB answers every call with err
type failingDB struct {
	database.Database
	err error
}

func (f failingDB) ListActiveSocialPosts(context.Context, time.Time) ([]*database.SocialPost, error) {
	return nil, f.err
}

var errDBDown = errors.New("db down")
