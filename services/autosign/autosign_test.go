package autosign

import (
	"context"
	"fmt"
	"sync"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/forum"
)

var epoch = time.Date(2025, 4, 1, 2, 0, 0, 0, time.UTC)

func ok(detail string) forum.SignOutcome {
	return forum.SignOutcome{Succeeded: true, Detail: detail}
}

func fail(detail string) forum.SignOutcome {
	return forum.SignOutcome{Succeeded: false, Detail: detail}
}

// scriptedSigner plays back outcomes per account, keyed on the auth cookie.
// Once an account's script runs out its last outcome repeats.
type scriptedSigner struct {
	mutex   sync.Mutex
	scripts map[string][]forum.SignOutcome
	calls   []string
}

func newScriptedSigner(scripts map[string][]forum.SignOutcome) *scriptedSigner {
	return &scriptedSigner{scripts: scripts}
}

func (s *scriptedSigner) Sign(ctx context.Context, cookies accounts.CookieSet) forum.SignOutcome {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	key, _ := cookies.Get("EeqY_2132_auth")
	s.calls = append(s.calls, key)

	script := s.scripts[key]
	if len(script) == 0 {
		return ok("signed")
	}
	outcome := script[0]
	if len(script) > 1 {
		s.scripts[key] = script[1:]
	}
	return outcome
}

func (s *scriptedSigner) Calls() []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func account(id, username string, autosign bool) accounts.Account {
	return accounts.Account{
		ExternalID: id,
		Username:   username,
		Cookies: accounts.NewCookieSet(map[string]string{
			"EeqY_2132_auth":    id,
			"EeqY_2132_saltkey": "salt",
		}),
		Valid:    true,
		AutoSign: autosign,
	}
}

type recordingNotifier struct {
	mutex     sync.Mutex
	progress  []Report
	summaries []string
	err       error
}

func (n *recordingNotifier) SendProgress(ctx context.Context, report Report) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.progress = append(n.progress, report)
	return n.err
}

func (n *recordingNotifier) SendSummary(ctx context.Context, text string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.summaries = append(n.summaries, text)
	return n.err
}

func manyAccounts(n int) []accounts.Account {
	out := make([]accounts.Account, n)
	for i := range out {
		out[i] = account(fmt.Sprintf("id-%d", i), fmt.Sprintf("user%d", i), true)
	}
	return out
}
