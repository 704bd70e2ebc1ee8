package telemetry

import (
	"sync"
	"testing"
)

var setupTestOnce sync.Once

// SetupForTesting turns on verbose slog output once per test binary and
// returns an API that records every report it receives.
func SetupForTesting(t testing.TB) *MemoryAPI {
	t.Helper()
	setupTestOnce.Do(func() {
		InitSlog(true)
	})
	return &MemoryAPI{inner: SlogAPI{}}
}

type Report struct {
	Kind   string
	ID     string
	Params []any
}

// MemoryAPI forwards reports to slog and keeps a copy for assertions.
type MemoryAPI struct {
	inner API

	mutex   sync.Mutex
	reports []Report
}

func (m *MemoryAPI) record(kind, id string, params []any) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reports = append(m.reports, Report{Kind: kind, ID: id, Params: params})
}

func (m *MemoryAPI) ReportBroken(id string, params ...any) {
	m.record("broken", id, params)
	m.inner.ReportBroken(id, params...)
}

func (m *MemoryAPI) ReportWarning(id string, params ...any) {
	m.record("warning", id, params)
	m.inner.ReportWarning(id, params...)
}

func (m *MemoryAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m *MemoryAPI) ReportCount(id string, count int64) {
	m.record("count", id, []any{count})
	m.inner.ReportCount(id, count)
}

// Reports returns all reports of a given kind ("broken", "warning" or "count").
func (m *MemoryAPI) Reports(kind string) []Report {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	out := []Report{}
	for _, r := range m.reports {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
