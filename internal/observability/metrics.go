package observability

import (
	"strconv"
	"sync"
	"time"
)

// Pipeline outcomes tracked per stream.
const (
	OutcomeConsumed   = "consumed"
	OutcomeRejected   = "rejected"
	OutcomeRetried    = "retried"
	OutcomeDead       = "dead"
	OutcomePersisted  = "persisted"
	OutcomePushed     = "pushed"
	OutcomePushFailed = "push_failed"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu            sync.Mutex
	requestCount  map[string]int64
	errorCount    map[string]int64
	pipelineCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:  make(map[string]int64),
		errorCount:    make(map[string]int64),
		pipelineCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordPipeline increments a per-stream pipeline outcome counter.
func (m *Metrics) RecordPipeline(stream, outcome string) {
	if m == nil {
		return
	}
	key := stream + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineCount[key]++
}

// PipelineCount reads a per-stream pipeline outcome counter.
func (m *Metrics) PipelineCount(stream, outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pipelineCount[stream+"|"+outcome]
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
