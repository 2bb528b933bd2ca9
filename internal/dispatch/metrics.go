package dispatch

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects per-entry activation statistics.
type Metrics struct {
	mu sync.RWMutex

	entries map[string]*EntryMetrics

	totalDispatches uint64
	totalErrors     uint64
	totalPanics     uint64
}

// EntryMetrics holds the statistics of one entry.
type EntryMetrics struct {
	ID            string
	DispatchCount uint64
	ErrorCount    uint64
	PanicCount    uint64
	TotalDuration time.Duration
	MaxDuration   time.Duration
	LastError     string
	LastDispatch  time.Time
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{entries: make(map[string]*EntryMetrics)}
}

// Record records one finished activation.
func (m *Metrics) Record(id string, duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalDispatches++
	em := m.entry(id)
	em.DispatchCount++
	em.TotalDuration += duration
	em.MaxDuration = max(em.MaxDuration, duration)
	em.LastDispatch = time.Now()
	if err != nil {
		m.totalErrors++
		em.ErrorCount++
		em.LastError = err.Error()
	}
}

// RecordPanic counts a recovered panic against id.
func (m *Metrics) RecordPanic(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalPanics++
	m.entry(id).PanicCount++
}

// entry returns the metrics of id, creating them. m.mu must be held.
func (m *Metrics) entry(id string) *EntryMetrics {
	em := m.entries[id]
	if em == nil {
		em = &EntryMetrics{ID: id}
		m.entries[id] = em
	}
	return em
}

// Totals returns the dispatch, error and panic counts.
func (m *Metrics) Totals() (dispatches, errs, panics uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalDispatches, m.totalErrors, m.totalPanics
}

// Entry returns a copy of the metrics of id.
func (m *Metrics) Entry(id string) (EntryMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	em, ok := m.entries[id]
	if !ok {
		return EntryMetrics{}, false
	}
	return *em, true
}

// Top returns the n most dispatched entries.
func (m *Metrics) Top(n int) []EntryMetrics {
	m.mu.RLock()
	result := make([]EntryMetrics, 0, len(m.entries))
	for _, em := range m.entries {
		result = append(result, *em)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].DispatchCount != result[j].DispatchCount {
			return result[i].DispatchCount > result[j].DispatchCount
		}
		return result[i].ID < result[j].ID
	})
	return result[:min(n, len(result))]
}

// Average returns the mean duration of the entry's activations.
func (em EntryMetrics) Average() time.Duration {
	if em.DispatchCount == 0 {
		return 0
	}
	return em.TotalDuration / time.Duration(em.DispatchCount)
}
