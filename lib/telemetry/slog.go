package telemetry

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
)

// SlogAPI implements API using the log/slog package.
type SlogAPI struct{}

var attrKey = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// attrs turns report params into slog attributes. Errors are logged under
// "err", a lowercase identifier followed by a value becomes a pair and
// anything else is numbered.
func attrs(params []any) []any {
	out := []any{}
	n := 0
	for i := 0; i < len(params); i++ {
		switch p := params[i].(type) {
		case error:
			out = append(out, slog.String("err", p.Error()))
			continue
		case string:
			if i+1 < len(params) && attrKey.MatchString(p) {
				out = append(out, slog.Any(p, params[i+1]))
				i++
				continue
			}
		}
		out = append(out, slog.Any(fmt.Sprintf("params.%d", n), params[i]))
		n++
	}
	return out
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", append([]any{"id", id}, attrs(params)...)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", append([]any{"id", id}, attrs(params)...)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, attrs(params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}

// InitSlog replaces the default slog logger with a text handler on stderr.
func InitSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}
