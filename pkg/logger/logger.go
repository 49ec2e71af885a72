package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RequestMetrics aggregates successful requests to one endpoint
type RequestMetrics struct {
	Count      int           `json:"count"`
	TotalTime  time.Duration `json:"total_time"`
	MinLatency time.Duration `json:"min_latency"`
	MaxLatency time.Duration `json:"max_latency"`
	AvgLatency time.Duration `json:"avg_latency"`
}

// Options configures New
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// BatchLogger wraps logrus.Logger and folds 200 responses into periodic summaries
type BatchLogger struct {
	*logrus.Logger
	metrics    map[string]*RequestMetrics
	batchCount int
	batchSize  int
	mutex      sync.Mutex
}

// New creates a logger. Level falls back to LOG_LEVEL, then info.
func New(opts Options) *BatchLogger {
	log := logrus.New()

	if opts.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "time",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "msg",
				logrus.FieldKeyFunc:  "func",
			},
		})
	}

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stdout)
	}

	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return &BatchLogger{
		Logger:    log,
		metrics:   make(map[string]*RequestMetrics),
		batchSize: 100,
	}
}

// LogRequest logs a request, batching 200 status codes
func (bl *BatchLogger) LogRequest(method, endpoint string, statusCode int, latency time.Duration, fields logrus.Fields) {
	if statusCode == 200 {
		bl.batchSuccess(method, endpoint, latency)
		return
	}

	entry := bl.WithFields(fields)
	switch {
	case statusCode >= 500:
		entry.Errorf("%s %s - Status: %d, Latency: %v", method, endpoint, statusCode, latency)
	case statusCode >= 400:
		entry.Warnf("%s %s - Status: %d, Latency: %v", method, endpoint, statusCode, latency)
	default:
		entry.Infof("%s %s - Status: %d, Latency: %v", method, endpoint, statusCode, latency)
	}
}

func (bl *BatchLogger) batchSuccess(method, endpoint string, latency time.Duration) {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()

	key := method + " " + endpoint
	m := bl.metrics[key]
	if m == nil {
		m = &RequestMetrics{MinLatency: latency, MaxLatency: latency}
		bl.metrics[key] = m
	}

	m.Count++
	m.TotalTime += latency
	if latency < m.MinLatency {
		m.MinLatency = latency
	}
	if latency > m.MaxLatency {
		m.MaxLatency = latency
	}
	m.AvgLatency = m.TotalTime / time.Duration(m.Count)

	bl.batchCount++
	if bl.batchCount >= bl.batchSize {
		bl.flushBatch()
	}
}

// caller holds mutex
func (bl *BatchLogger) flushBatch() {
	if bl.batchCount == 0 {
		return
	}

	bl.WithFields(logrus.Fields{
		"batch_summary":  true,
		"total_requests": bl.batchCount,
		"endpoints":      bl.metrics,
	}).Info("Request batch summary (200 status codes)")

	bl.metrics = make(map[string]*RequestMetrics)
	bl.batchCount = 0
}

// FlushPending forces a flush of any pending batch data
func (bl *BatchLogger) FlushPending() {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()
	bl.flushBatch()
}

// Pending returns the number of requests waiting in the current batch
func (bl *BatchLogger) Pending() int {
	bl.mutex.Lock()
	defer bl.mutex.Unlock()
	return bl.batchCount
}

// RunFlusher flushes the batch every interval until ctx is done, then once more
func (bl *BatchLogger) RunFlusher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			bl.FlushPending()
			return
		case <-ticker.C:
			bl.FlushPending()
		}
	}
}
