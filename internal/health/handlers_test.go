package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solsub-admin/internal/database"
	"solsub-admin/internal/docstore"
	"solsub-admin/internal/docstore/docstoretest"
	"solsub-admin/internal/sessions"
)

func setup(t *testing.T) (*gin.Engine, *docstoretest.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := docstoretest.New()
	prevDB, prevStore, prevSM := database.DB, docstore.Default, sessions.GlobalManager
	database.DB, docstore.Default, sessions.GlobalManager = db, store, nil
	t.Cleanup(func() {
		database.DB, docstore.Default, sessions.GlobalManager = prevDB, prevStore, prevSM
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	r := gin.New()
	r.GET("/health", HandleHealthCheck)
	r.GET("/ready", HandleSystemReady)
	return r, store
}

func TestHealth(t *testing.T) {
	r, _ := setup(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestReady(t *testing.T) {
	r, store := setup(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Ready  bool                       `json:"ready"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	assert.Contains(t, body.Checks, "database")
	assert.Contains(t, body.Checks, "document_store")
	assert.NotContains(t, body.Checks, "redis")

	store.Err = errors.New("no reachable servers")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "no reachable servers")
}

func TestReady_MissingStores(t *testing.T) {
	r, _ := setup(t)
	database.DB, docstore.Default = nil, nil

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), database.ErrNotInitialized.Error())
}
