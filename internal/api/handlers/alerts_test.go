package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostdev-ops/agent-dashboard-backend/internal/core/alerting"
)

func TestGetAlerts_Filters(t *testing.T) {
	env := newTestEnv(t)
	seedAlerts(env.store, time.Now())
	env.store.Acknowledge("a-high")

	var alerts []alerting.Alert
	rec := env.do(t, http.MethodGet, "/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec, &alerts)
	assert.Len(t, alerts, 3)
	assert.Equal(t, float64(3), resp.Meta["count"])

	rec = env.do(t, http.MethodGet, "/alerts?severity=CRITICAL", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &alerts)
	require.Len(t, alerts, 1)
	assert.Equal(t, "a-crit", alerts[0].ID)

	rec = env.do(t, http.MethodGet, "/alerts?unacknowledged=true", nil)
	decode(t, rec, &alerts)
	assert.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.NotEqual(t, "a-high", a.ID)
	}

	rec = env.do(t, http.MethodGet, "/alerts?severity=urgent", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlertLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seedAlerts(env.store, time.Now())

	var result map[string]interface{}
	rec := env.do(t, http.MethodPost, "/alerts/a-crit/acknowledge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, true, result["updated"])

	// a second acknowledge changes nothing but still succeeds
	rec = env.do(t, http.MethodPost, "/alerts/a-crit/acknowledge", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, false, result["updated"])

	rec = env.do(t, http.MethodPost, "/alerts/a-crit/resolve", map[string]string{"resolvedBy": "oncall"})
	require.Equal(t, http.StatusOK, rec.Code)

	alert, ok := env.store.Get("a-crit")
	require.True(t, ok)
	assert.True(t, alert.Resolved)
	assert.True(t, alert.Acknowledged)
	assert.Equal(t, "oncall", alert.ResolvedBy)
	require.NotNil(t, alert.ResolvedAt)

	rec = env.do(t, http.MethodPost, "/alerts/does-not-exist/resolve", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "stale ids are a silent no-op")
	decode(t, rec, &result)
	assert.Equal(t, false, result["updated"])

	var summary alerting.Summary
	rec = env.do(t, http.MethodGet, "/alerts/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &summary)
	assert.Equal(t, 2, summary.TotalActive)
	assert.Equal(t, 0, summary.Critical)
	assert.Equal(t, 1, summary.High)
	assert.Equal(t, 3, summary.HistorySize)

	rec = env.do(t, http.MethodPost, "/alerts/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &result)
	assert.Equal(t, float64(2), result["cleared"])
	assert.Empty(t, env.store.ActiveAlerts())

	var history []alerting.Alert
	rec = env.do(t, http.MethodGet, "/alerts/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec, &history)
	assert.Len(t, history, 2)
	assert.Equal(t, float64(3), resp.Meta["total"])
	for _, a := range env.store.AlertHistory() {
		assert.True(t, a.Resolved)
	}
}

func TestResolveAlert_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	seedAlerts(env.store, time.Now())

	req := httptest.NewRequest(http.MethodPost, "/alerts/a-low/resolve", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	alert, _ := env.store.Get("a-low")
	assert.False(t, alert.Resolved)
}

func TestExportAlertHistory(t *testing.T) {
	env := newTestEnv(t)
	seedAlerts(env.store, time.Now())

	rec := env.do(t, http.MethodGet, "/alerts/history/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "alert-history-")

	var export AlertExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &export))
	assert.Len(t, export.History, 3)
	assert.Equal(t, 3, export.Summary.TotalActive)

	rec = env.do(t, http.MethodGet, "/alerts/history/export?compress=zstd", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".json.zst")

	decoder, err := zstd.NewReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer decoder.Close()
	raw, err := io.ReadAll(decoder)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Len(t, export.Active, 3)

	rec = env.do(t, http.MethodGet, "/alerts/history/export?compress=brotli", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type brokenCompressor struct {
	closed bool
}

func (b *brokenCompressor) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func (b *brokenCompressor) Close() error {
	b.closed = true
	return errors.New("close after failed write")
}

func TestWriteExport_ClosesCompressorOnEncodeError(t *testing.T) {
	broken := &brokenCompressor{}
	original := exportCompressors["zstd"]
	exportCompressors["zstd"] = func(io.Writer) (io.WriteCloser, error) { return broken, nil }
	t.Cleanup(func() { exportCompressors["zstd"] = original })

	err := writeExport(io.Discard, "zstd", &AlertExport{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode alert export")
	assert.True(t, broken.closed)
}

func TestWriteExport_Gzip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeExport(&buf, "gzip", &AlertExport{History: []alerting.Alert{{ID: "a-1"}}}))

	reader, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	var export AlertExport
	require.NoError(t, json.NewDecoder(reader).Decode(&export))
	require.Len(t, export.History, 1)
	assert.Equal(t, "a-1", export.History[0].ID)
}
