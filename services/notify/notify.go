// Package notify holds the places a run report can be published to.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"yamisign/services/autosign"
)

// Multi fans every message out to all of its notifiers. A failing notifier
// does not prevent the others from being called.
type Multi []autosign.Notifier

func (m Multi) SendProgress(ctx context.Context, report autosign.Report) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendProgress(ctx, report))
	}
	return errors.Join(errs...)
}

func (m Multi) SendSummary(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.SendSummary(ctx, text))
	}
	return errors.Join(errs...)
}

// splitSummary splits a summary into its first line and the rest.
func splitSummary(text string) (title, body string) {
	title, body, _ = strings.Cut(text, "\n")
	return title, body
}

// LogNotifier writes messages to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier uses slog.Default() when logger is nil.
func NewLogNotifier(logger *slog.Logger) LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return LogNotifier{logger: logger}
}

func (l LogNotifier) SendProgress(ctx context.Context, report autosign.Report) error {
	l.logger.InfoContext(
		ctx, report.Title(),
		"run_id", report.RunID,
		"progress", report.Description(),
		"status", report.Footer(),
	)
	return nil
}

func (l LogNotifier) SendSummary(ctx context.Context, text string) error {
	title, body := splitSummary(text)
	l.logger.InfoContext(ctx, title, "text", body)
	return nil
}
