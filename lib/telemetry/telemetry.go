package telemetry

import (
	"fmt"
)

// API is what components report through instead of logging directly, so
// tests can assert on what was reported.
//
// Report ids name the component that broke, not the line that broke:
// `signer.sign` rather than `signer.sign.http-get`. Details go in params.
// Ids are lowercase, underscores separate words and dots or dashes
// separate a component from its method. Every package declares its ids as
// `report_*` constants.
type API interface {
	// ReportBroken reports a component that has broken in a way that should be addressed.
	ReportBroken(id string, params ...any)
	// ReportWarning reports something worth investigating that is not
	// necessarily broken, like a single failed request.
	ReportWarning(id string, params ...any)
	// ReportDebug reports information that is dropped unless running verbose.
	ReportDebug(msg string, params ...any)
	// ReportCount reports the current value of a count, the values are data
	// points over time and should not be summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id and debug message with a namespace.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

// Scope returns an API nested under this one, "forum" then "login" reports
// as "forum.login: <id>".
func (s ScopedAPI) Scope(namespace string) ScopedAPI {
	return ScopedAPI{namespace: s.namespace + "." + namespace, inner: s.inner}
}

func (s ScopedAPI) prefix(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.prefix(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.prefix(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.prefix(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.prefix(id), count)
}
