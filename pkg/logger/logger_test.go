package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Level(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New(Options{Level: "debug"}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, New(Options{Level: "nonsense"}).GetLevel())

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, logrus.WarnLevel, New(Options{}).GetLevel())
}

func TestLogRequest_BatchesSuccess(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Output: &buf})

	log.LogRequest("GET", "/api/v1/alerts", 200, 5*time.Millisecond, nil)
	log.LogRequest("GET", "/api/v1/alerts", 200, 15*time.Millisecond, nil)
	assert.Equal(t, 2, log.Pending())
	assert.Empty(t, buf.String())

	log.FlushPending()
	assert.Equal(t, 0, log.Pending())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["batch_summary"])
	assert.Equal(t, float64(2), entry["total_requests"])
}

func TestLogRequest_ErrorsImmediately(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Output: &buf})

	log.LogRequest("POST", "/api/v1/alert-rules", 400, time.Millisecond, logrus.Fields{"client_ip": "10.0.0.1"})

	out := buf.String()
	assert.True(t, strings.Contains(out, `"level":"warning"`))
	assert.Contains(t, out, "Status: 400")
	assert.Equal(t, 0, log.Pending())
}
