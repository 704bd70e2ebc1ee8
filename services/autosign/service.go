package autosign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/assert"
	"yamisign/lib/chrono"
	"yamisign/lib/forum"
	"yamisign/lib/telemetry"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_service_load     = "service.load"
	report_service_notify   = "service.notify"
	report_service_digest   = "service.digest"
	report_service_schedule = "service.schedule"
)

const (
	MsgLoadingAccounts = "Daily Sign Process\nLoading accounts from database..."
	MsgDetailsTitle    = "Last 20 Sign Details"
	MsgDigestTitle     = "Autosign Digest"
)

const suggestionThreshold = 0.8

// Notifier publishes run progress and free-form summaries somewhere a
// human will see them. Errors are logged and never stop a run.
type Notifier interface {
	SendProgress(ctx context.Context, report Report) error
	SendSummary(ctx context.Context, text string) error
}

type Options struct {
	ScheduledTime TimeOfDay
	Run           RunOptions
	PollCeiling   time.Duration
	// DigestCron is an optional cron spec for Digest, empty disables it.
	DigestCron string
}

// Service ties the store, the signer and the notifier together into the
// daily autosign job and the single account operations.
type Service struct {
	store     accounts.Store
	signer    Signer
	notifier  Notifier
	runner    Runner
	scheduler Scheduler
	clock     chrono.Clock
	tel       telemetry.API
	opts      Options
}

func NewService(
	store accounts.Store,
	signer Signer,
	notifier Notifier,
	clock chrono.Clock,
	tel telemetry.API,
	opts Options,
) Service {
	assert.NotNil(store)
	assert.NotNil(notifier)
	return Service{
		store:     store,
		signer:    signer,
		notifier:  notifier,
		runner:    NewRunner(signer, clock, tel),
		scheduler: NewScheduler(clock, tel),
		clock:     clock,
		tel:       telemetry.NewScopedAPI("autosign", tel),
		opts:      opts,
	}
}

func (s Service) sendSummary(ctx context.Context, text string) {
	err := s.notifier.SendSummary(ctx, text)
	if err != nil {
		s.tel.ReportWarning(report_service_notify, err)
	}
}

func (s Service) sendProgress(ctx context.Context, report Report) {
	err := s.notifier.SendProgress(ctx, report)
	if err != nil {
		s.tel.ReportWarning(report_service_notify, err, "processed", report.Processed)
	}
}

// RunScheduled signs every account enrolled in autosign and reports the
// progress through the notifier.
func (s Service) RunScheduled(ctx context.Context, scheduled time.Time) Report {
	ctx, span := tracer.Start(ctx, "Service.RunScheduled")
	defer span.End()
	span.SetAttributes(attribute.String("scheduled", scheduled.String()))

	s.sendSummary(ctx, MsgLoadingAccounts)

	list, err := s.store.GetAutoSign(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load accounts")
		s.tel.ReportBroken(report_service_load, err)
		s.sendSummary(ctx, fmt.Sprintf("Daily Sign Process\nFailed to load accounts: %v", err))
		return Report{}
	}

	s.sendProgress(ctx, Report{Total: len(list), StartedAt: s.clock.Now()})

	opts := s.opts.Run
	opts.OnProgress = func(r Report) {
		s.sendProgress(ctx, r)
	}
	report := s.runner.RunOnce(ctx, list, opts)

	s.sendProgress(ctx, report)
	s.sendSummary(ctx, MsgDetailsTitle+"\n"+report.DetailsText())
	return report
}

// RunNow runs the daily job immediately.
func (s Service) RunNow(ctx context.Context) Report {
	return s.RunScheduled(ctx, s.clock.Now())
}

// SignOne makes a single sign attempt for one account.
func (s Service) SignOne(ctx context.Context, externalID string) (forum.SignOutcome, error) {
	acc, err := s.store.GetByID(ctx, externalID)
	if err != nil {
		return forum.SignOutcome{}, fmt.Errorf("sign %s: %w", externalID, err)
	}
	return s.signer.Sign(ctx, acc.Cookies), nil
}

// ToggleAutoSign flips the autosign flag of an account and returns the new value.
func (s Service) ToggleAutoSign(ctx context.Context, externalID string) (bool, error) {
	acc, err := s.store.GetByID(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("toggle autosign %s: %w", externalID, err)
	}
	acc.AutoSign = !acc.AutoSign
	err = s.store.Upsert(ctx, acc)
	if err != nil {
		return false, fmt.Errorf("toggle autosign %s: %w", externalID, err)
	}
	return acc.AutoSign, nil
}

// FindByUsername looks an account up by forum username, case-insensitively.
// When nothing matches the error suggests the closest known username.
func (s Service) FindByUsername(ctx context.Context, username string) (accounts.Account, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return accounts.Account{}, err
	}

	target := strings.ToLower(strings.TrimSpace(username))
	best := ""
	bestScore := 0.0
	for _, acc := range all {
		name := strings.ToLower(acc.Username)
		if name == target {
			return acc, nil
		}
		score := matchr.JaroWinkler(target, name, false)
		if score > bestScore {
			best = acc.Username
			bestScore = score
		}
	}

	if bestScore >= suggestionThreshold {
		return accounts.Account{}, fmt.Errorf("%w: %q, did you mean %q?", accounts.ErrNotFound, username, best)
	}
	return accounts.Account{}, fmt.Errorf("%w: %q", accounts.ErrNotFound, username)
}

// Digest sends the list of accounts enrolled in autosign whose session is
// no longer valid and need to log in again.
func (s Service) Digest(ctx context.Context) error {
	list, err := s.store.GetAutoSign(ctx)
	if err != nil {
		return fmt.Errorf("digest: %w", err)
	}

	lines := []string{}
	for _, acc := range list {
		if !acc.Valid {
			lines = append(lines, fmt.Sprintf("- %s (%s)", acc.DisplayName(), acc.ExternalID))
		}
	}

	text := MsgDigestTitle + "\n"
	if len(lines) == 0 {
		text += fmt.Sprintf("All %d enrolled accounts have a valid session.", len(list))
	} else {
		text += fmt.Sprintf("%d of %d enrolled accounts need to log in again:\n", len(lines), len(list))
		text += strings.Join(lines, "\n")
	}
	return s.notifier.SendSummary(ctx, text)
}

// Start runs the daily job, and the digest when configured, until ctx is done.
func (s Service) Start(ctx context.Context) error {
	if s.opts.DigestCron != "" {
		cron := chrono.NewStandardCron(s.clock, s.tel)
		defer cron.Stop()

		err := cron.Cron(s.opts.DigestCron, func() {
			err := s.Digest(ctx)
			if err != nil {
				s.tel.ReportBroken(report_service_digest, err)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule digest %q: %w", s.opts.DigestCron, err)
		}
	}

	err := s.scheduler.Start(ctx, s.opts.ScheduledTime, s.opts.PollCeiling, func(ctx context.Context, scheduled time.Time) {
		s.RunScheduled(ctx, scheduled)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		s.tel.ReportBroken(report_service_schedule, err)
	}
	return err
}
