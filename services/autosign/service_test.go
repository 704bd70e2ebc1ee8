package autosign

import (
	"context"
	"errors"
	"testing"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/chrono"
	"yamisign/lib/forum"
	"yamisign/lib/telemetry"
	"yamisign/lib/testutil"

	"github.com/stretchr/testify/require"
)

type serviceEnv struct {
	service  Service
	store    accounts.Store
	signer   *scriptedSigner
	notifier *recordingNotifier
	clock    *chrono.FakeClock
	tel      *telemetry.MemoryAPI
}

func setupService(t *testing.T, store accounts.Store, scripts map[string][]forum.SignOutcome) serviceEnv {
	t.Helper()
	env := serviceEnv{
		store:    store,
		signer:   newScriptedSigner(scripts),
		notifier: &recordingNotifier{},
		clock:    chrono.NewFakeClock(epoch),
		tel:      telemetry.SetupForTesting(t),
	}
	env.service = NewService(env.store, env.signer, env.notifier, env.clock, env.tel, Options{
		ScheduledTime: TimeOfDay{Hour: 3},
		Run:           RunOptions{MaxRetries: 3, BatchSize: 100},
	})
	return env
}

func TestRunScheduled(t *testing.T) {
	store := testutil.SetupStore(t,
		account("discord:1", "alice", true),
		account("discord:2", "carol", false),
		account("discord:3", "bob", true),
	)
	env := setupService(t, store, map[string][]forum.SignOutcome{
		"discord:1": {ok("打卡成功")},
		"discord:3": {fail("nope")},
	})

	report := env.service.RunScheduled(context.Background(), epoch)
	require.Equal(t, 2, report.Total)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, []string{"discord:1", "discord:3", "discord:3", "discord:3"}, env.signer.Calls())

	require.Equal(t, []string{
		MsgLoadingAccounts,
		"Last 20 Sign Details\nalice: succeeded - 打卡成功\nbob: failed after 3 attempts - nope",
	}, env.notifier.summaries)

	progress := env.notifier.progress
	require.Len(t, progress, 3)
	require.Equal(t, "Starting sign process...", progress[0].Description())
	require.Equal(t, 2, progress[1].Processed)
	require.False(t, progress[1].Finished())
	require.True(t, progress[2].Finished())
	require.Equal(t, "Total: 2 | Success: 1 | Failed: 1", progress[2].Footer())
}

func TestRunScheduledNotifierFailure(t *testing.T) {
	store := testutil.SetupStore(t, account("discord:1", "alice", true))
	env := setupService(t, store, nil)
	env.notifier.err = errors.New("webhook down")

	report := env.service.RunScheduled(context.Background(), epoch)
	require.Equal(t, 1, report.Succeeded)
	require.NotEmpty(t, env.tel.Reports("warning"))
}

func TestRunScheduledStoreFailure(t *testing.T) {
	env := setupService(t, testutil.FailingStore{}, nil)

	report := env.service.RunScheduled(context.Background(), epoch)
	require.Equal(t, 0, report.Total)
	require.Empty(t, env.signer.Calls())
	require.Len(t, env.tel.Reports("broken"), 1)
	require.Len(t, env.notifier.summaries, 2)
	require.Contains(t, env.notifier.summaries[1], testutil.ErrStoreDown.Error())
}

func TestSignOne(t *testing.T) {
	store := testutil.SetupStore(t, account("discord:1", "alice", false))
	env := setupService(t, store, map[string][]forum.SignOutcome{
		"discord:1": {fail("first"), ok("second")},
	})
	ctx := context.Background()

	outcome, err := env.service.SignOne(ctx, "discord:1")
	require.NoError(t, err)
	require.Equal(t, fail("first"), outcome)

	_, err = env.service.SignOne(ctx, "discord:404")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestToggleAutoSign(t *testing.T) {
	store := testutil.SetupStore(t, account("discord:1", "alice", false))
	env := setupService(t, store, nil)
	ctx := context.Background()

	enabled, err := env.service.ToggleAutoSign(ctx, "discord:1")
	require.NoError(t, err)
	require.True(t, enabled)

	acc, err := store.GetByID(ctx, "discord:1")
	require.NoError(t, err)
	require.True(t, acc.AutoSign)

	enabled, err = env.service.ToggleAutoSign(ctx, "discord:1")
	require.NoError(t, err)
	require.False(t, enabled)

	_, err = env.service.ToggleAutoSign(ctx, "discord:404")
	require.ErrorIs(t, err, accounts.ErrNotFound)
}

func TestFindByUsername(t *testing.T) {
	store := testutil.SetupStore(t,
		account("discord:1", "Alice", true),
		account("discord:2", "bob", true),
	)
	env := setupService(t, store, nil)
	ctx := context.Background()

	acc, err := env.service.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, "discord:1", acc.ExternalID)

	_, err = env.service.FindByUsername(ctx, "alcie")
	require.ErrorIs(t, err, accounts.ErrNotFound)
	require.Contains(t, err.Error(), `did you mean "Alice"?`)

	_, err = env.service.FindByUsername(ctx, "zzzzzz")
	require.ErrorIs(t, err, accounts.ErrNotFound)
	require.NotContains(t, err.Error(), "did you mean")
}

func TestDigest(t *testing.T) {
	expired := account("discord:2", "bob", true)
	expired.Valid = false
	notEnrolled := account("discord:3", "carol", false)
	notEnrolled.Valid = false

	store := testutil.SetupStore(t, account("discord:1", "alice", true), expired, notEnrolled)
	env := setupService(t, store, nil)

	require.NoError(t, env.service.Digest(context.Background()))
	require.Equal(t, []string{
		"Autosign Digest\n1 of 2 enrolled accounts need to log in again:\n- bob (discord:2)",
	}, env.notifier.summaries)
}

func TestStartStopsWhenCancelled(t *testing.T) {
	store := testutil.SetupStore(t, account("discord:1", "alice", true))
	env := setupService(t, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.clock.OnSleep = func(now time.Time) {
		if !now.Before(time.Date(2025, 4, 1, 4, 0, 0, 0, time.UTC)) {
			cancel()
		}
	}

	require.NoError(t, env.service.Start(ctx))
	require.Equal(t, []string{"discord:1"}, env.signer.Calls())
}

func TestStartInvalidDigestCron(t *testing.T) {
	env := setupService(t, testutil.SetupStore(t), nil)
	env.service.opts.DigestCron = "not a cron spec"

	err := env.service.Start(context.Background())
	require.Error(t, err)
}
