package observability

import (
	"strconv"
	"sync"
)

// Metrics provides basic in-memory counters for the HTTP surface and the
// escalation runner.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64

	runnerPasses   int64
	escalations    int64
	conflicts      int64
	runnerFailures int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
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

// RecordRunnerPass tallies one completed escalation pass.
func (m *Metrics) RecordRunnerPass(escalated, conflicts, failures int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runnerPasses++
	m.escalations += int64(escalated)
	m.conflicts += int64(conflicts)
	m.runnerFailures += int64(failures)
}

// RunnerSnapshot returns cumulative runner counters.
func (m *Metrics) RunnerSnapshot() (passes, escalations, conflicts, failures int64) {
	if m == nil {
		return 0, 0, 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runnerPasses, m.escalations, m.conflicts, m.runnerFailures
}
