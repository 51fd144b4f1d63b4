package config

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	conf := New()

	assert.NotEmpty(t, conf)
	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
}

func TestNewDefaults(t *testing.T) {
	conf := New()

	assert.Equal(t, "3000", conf.Port)
	assert.Equal(t, "disk", conf.StorageDriver)
	assert.Equal(t, "reset", conf.ChatHistoryMode)
	assert.Equal(t, 10, conf.ChatHistoryLimit)
	assert.Equal(t, 24*time.Hour, conf.SessionTTL)
	assert.False(t, conf.SerializeDocketWrites)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("CHAT_HISTORY_MODE", "window")
	t.Setenv("CHAT_HISTORY_LIMIT", "25")
	t.Setenv("SERIALIZE_DOCKET_WRITES", "true")
	t.Setenv("SESSION_TTL_SECONDS", "60")
	conf := New()

	assert.Equal(t, "window", conf.ChatHistoryMode)
	assert.Equal(t, 25, conf.ChatHistoryLimit)
	assert.True(t, conf.SerializeDocketWrites)
	assert.Equal(t, time.Minute, conf.SessionTTL)
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("error it borked", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, `{"response": "error it borked, bad request"}`, rr.Body.String())
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(2))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}
