package forum

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	"yamisign/lib/accounts"
	"yamisign/lib/chrono"
	"yamisign/lib/telemetry"
	"yamisign/lib/testutil"

	"github.com/stretchr/testify/require"
)

// fakeForum routes requests the way the real forum's default paths look.
// Handlers left nil respond with 404.
type fakeForum struct {
	loginPage   http.HandlerFunc
	loginSubmit http.HandlerFunc
	check       http.HandlerFunc
	signPage    http.HandlerFunc
	signAction  http.HandlerFunc

	mutex    sync.Mutex
	requests []string
}

func (f *fakeForum) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	f.requests = append(f.requests, fmt.Sprintf("%s %s", r.Method, r.URL.RequestURI()))
	f.mutex.Unlock()

	q := r.URL.Query()
	var handler http.HandlerFunc
	switch {
	case r.URL.Path == "/member.php" && q.Get("loginsubmit") == "yes":
		handler = f.loginSubmit
	case r.URL.Path == "/member.php":
		handler = f.loginPage
	case r.URL.Path == "/forum-49-1.html":
		handler = f.check
	case r.URL.Path == "/plugin.php" && q.Get("sign") != "":
		handler = f.signAction
	case r.URL.Path == "/plugin.php":
		handler = f.signPage
	}
	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler(w, r)
}

func (f *fakeForum) Requests() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	out := make([]string, len(f.requests))
	copy(out, f.requests)
	return out
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: value, Path: "/"})
}

type testEnv struct {
	forum *fakeForum
	srv   *httptest.Server
	site  *Site
	store accounts.Store
	clock *chrono.FakeClock
	tel   *telemetry.MemoryAPI
}

func setup(t *testing.T, forum *fakeForum) testEnv {
	t.Helper()
	return setupWithOptions(t, forum, Options{})
}

// setupWithOptions points opts at a fake forum, fields that only make sense
// against the real site are overridden.
func setupWithOptions(t *testing.T, forum *fakeForum, opts Options) testEnv {
	t.Helper()
	tel := telemetry.SetupForTesting(t)

	srv := httptest.NewServer(forum)
	t.Cleanup(srv.Close)

	opts.BaseUrl = srv.URL
	opts.RequestsPerSecond = 1000
	opts.DisableCloudflareBypass = true
	site, err := NewSite(opts, tel)
	require.NoError(t, err)

	return testEnv{
		forum: forum,
		srv:   srv,
		site:  site,
		store: testutil.SetupStore(t),
		clock: chrono.NewFakeClock(time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)),
		tel:   tel,
	}
}

func (e testEnv) authenticator() Authenticator {
	return NewAuthenticator(e.site, e.store, e.clock)
}

func TestNewSiteValidation(t *testing.T) {
	tel := telemetry.SetupForTesting(t)

	_, err := NewSite(Options{BaseUrl: "not-absolute"}, tel)
	require.Error(t, err)

	site, err := NewSite(Options{BaseUrl: "https://example.com/bbs"}, tel)
	require.NoError(t, err)
	require.Equal(t, "https://example.com/bbs/", site.BaseUrl().String())
	require.Equal(t, accounts.DefaultCookiePrefix+"auth", site.SessionFilter().AuthCookie())
	require.Equal(t, DefaultSignPath, site.opts.SignPath)
	require.Equal(t, DefaultTimeout, site.opts.timeout())
}
