package autosign

import (
	"context"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/assert"
	"yamisign/lib/chrono"
	"yamisign/lib/forum"
	"yamisign/lib/telemetry"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("yamisign.services.autosign")
var meter = otel.Meter("yamisign.services.autosign")
var signCounter, _ = meter.Int64Counter("autosign_sign_total")

const (
	report_runner_run_id = "runner.run-id"
)

const (
	DefaultPerItemDelay = 5 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 5 * time.Second
	DefaultBatchSize    = 100
)

// Signer is the part of forum.Signer the runner depends on.
type Signer interface {
	Sign(ctx context.Context, cookies accounts.CookieSet) forum.SignOutcome
}

type RunOptions struct {
	// PerItemDelay is slept after every account, whatever the outcome.
	PerItemDelay time.Duration
	// MaxRetries is the total number of attempts per account.
	MaxRetries int
	// RetryDelay is slept between attempts, never after the last one.
	RetryDelay time.Duration
	BatchSize  int
	// OnProgress receives a copy of the report every BatchSize accounts
	// and once the last account is processed.
	OnProgress func(Report)
}

// DefaultRunOptions are the delays and limits used by the daily run.
func DefaultRunOptions() RunOptions {
	return RunOptions{
		PerItemDelay: DefaultPerItemDelay,
		MaxRetries:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		BatchSize:    DefaultBatchSize,
	}
}

func (o RunOptions) withDefaults() RunOptions {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	o.PerItemDelay = max(o.PerItemDelay, 0)
	o.RetryDelay = max(o.RetryDelay, 0)
	return o
}

// Runner signs a list of accounts one after another.
type Runner struct {
	signer Signer
	clock  chrono.Clock
	tel    telemetry.API
}

func NewRunner(signer Signer, clock chrono.Clock, tel telemetry.API) Runner {
	assert.NotNil(signer)
	assert.NotNil(clock)
	return Runner{
		signer: signer,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("autosign", tel),
	}
}

func newRunID() string {
	id, err := random.String(8)
	if err != nil {
		return ""
	}
	return id
}

// RunOnce signs every account in order and returns the final report. If ctx
// is cancelled the loop stops and the partial report is returned.
func (r Runner) RunOnce(ctx context.Context, list []accounts.Account, opts RunOptions) Report {
	ctx, span := tracer.Start(ctx, "Runner.RunOnce")
	defer span.End()

	opts = opts.withDefaults()

	report := Report{
		RunID:     newRunID(),
		Total:     len(list),
		StartedAt: r.clock.Now(),
	}
	if report.RunID == "" {
		r.tel.ReportWarning(report_runner_run_id)
	}
	span.SetAttributes(
		attribute.String("run_id", report.RunID),
		attribute.Int("total", report.Total),
	)

	for _, acc := range list {
		if ctx.Err() != nil {
			break
		}

		outcome, attempts := r.signWithRetries(ctx, acc, opts)
		report.Processed++
		if outcome.Succeeded {
			report.Succeeded++
			report.addDetail(successDetail(acc.DisplayName(), outcome.Detail))
			signCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "succeeded")))
		} else {
			report.Failed++
			report.addDetail(failureDetail(acc.DisplayName(), attempts, outcome.Detail))
			signCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failed")))
			r.tel.ReportDebug("sign failed", "account", acc.ExternalID, "attempts", attempts, "detail", outcome.Detail)
		}

		if opts.OnProgress != nil && (report.Processed%opts.BatchSize == 0 || report.Processed == report.Total) {
			opts.OnProgress(report.snapshot())
		}

		err := r.clock.Sleep(ctx, opts.PerItemDelay)
		if err != nil {
			break
		}
	}

	report.FinishedAt = r.clock.Now()
	span.SetAttributes(
		attribute.Int("succeeded", report.Succeeded),
		attribute.Int("failed", report.Failed),
	)
	if ctx.Err() != nil {
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "run interrupted")
	}
	return report
}

func (r Runner) signWithRetries(ctx context.Context, acc accounts.Account, opts RunOptions) (forum.SignOutcome, int) {
	var outcome forum.SignOutcome
	attempt := 0
	for attempt < opts.MaxRetries {
		attempt++
		outcome = r.signer.Sign(ctx, acc.Cookies)
		if outcome.Succeeded || attempt == opts.MaxRetries {
			break
		}
		r.tel.ReportDebug("retrying sign", "account", acc.ExternalID, "attempt", attempt, "detail", outcome.Detail)
		err := r.clock.Sleep(ctx, opts.RetryDelay)
		if err != nil {
			break
		}
	}
	return outcome, attempt
}
