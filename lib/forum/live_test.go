package forum

import (
	"context"
	"testing"
	"time"
	devenv "yamisign/dev/env"
	"yamisign/lib/chrono"
	"yamisign/lib/telemetry"
	"yamisign/lib/testutil"

	"github.com/stretchr/testify/require"
)

// TestLive logs into and signs on a real forum, it only runs when
// dev/.state/forum_test.json5 exists.
func TestLive(t *testing.T) {
	config, err := devenv.GetStateConfig[devenv.ForumTestConfig]("forum_test.json5")
	if err != nil {
		t.Skipf("no live forum config: %v", err)
	}
	tel := telemetry.SetupForTesting(t)

	site, err := NewSite(Options{BaseUrl: config.BaseUrl}, tel)
	require.NoError(t, err)

	clock, err := chrono.NewStandardClock("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	auth := NewAuthenticator(site, testutil.SetupStore(t), clock)
	message, acc := auth.LoginPassword(ctx, "live", PasswordCredentials{
		Username:   config.Username,
		Password:   config.Password,
		QuestionID: config.QuestionID,
		Answer:     config.Answer,
	})
	t.Log(message)
	require.True(t, acc.Valid)

	outcome := NewSigner(site).Sign(ctx, acc.Cookies)
	t.Log(outcome.Detail)
	require.NotEmpty(t, outcome.Detail)
}
