package forum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"yamisign/lib/accounts"
	"yamisign/lib/assert"
	"yamisign/lib/restyutil"
	"yamisign/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("yamisign.lib.forum")

// Site holds what every forum session shares: the resolved options, the
// base url and a single rate limiter, so that concurrent logins and sign
// runs never exceed the configured request rate together.
type Site struct {
	opts    Options
	baseUrl *url.URL
	filter  accounts.SessionFilter
	limiter *rate.Limiter
	dump    restyutil.InstrumentOutput

	tel telemetry.API
}

func NewSite(opts Options, tel telemetry.API) (*Site, error) {
	assert.NotNil(tel)
	opts = opts.withDefaults()

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if baseUrl.Scheme == "" || baseUrl.Host == "" {
		return nil, fmt.Errorf("base url '%s' must be absolute", opts.BaseUrl)
	}
	if !strings.HasSuffix(baseUrl.Path, "/") {
		baseUrl.Path += "/"
	}

	var dump restyutil.InstrumentOutput
	if opts.DumpDir != "" {
		out, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return nil, fmt.Errorf("create dump dir: %w", err)
		}
		dump = out
	}

	// max burst >= 1 just means that no requests will be dropped
	burst := int(math.Max(1, math.Ceil(opts.RequestsPerSecond)))

	return &Site{
		opts:    opts,
		baseUrl: baseUrl,
		filter:  accounts.NewSessionFilter(opts.CookiePrefix),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
		dump:    dump,
		tel:     telemetry.NewScopedAPI("forum", tel),
	}, nil
}

func (s *Site) BaseUrl() *url.URL {
	copied := *s.baseUrl
	return &copied
}

// SessionFilter is the filter matching this forum's session cookies.
func (s *Site) SessionFilter() accounts.SessionFilter {
	return s.filter
}

// session is a resty client with its own cookie jar, one is created for
// every login or sign operation.
type session struct {
	http *resty.Client
	jar  http.CookieJar
}

func (s *Site) newSession(cookies accounts.CookieSet) (session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return session{}, err
	}
	if cookies.Len() > 0 {
		httpCookies := cookies.HTTPCookies()
		for _, c := range httpCookies {
			c.Path = "/"
		}
		jar.SetCookies(s.baseUrl, httpCookies)
	}

	client := resty.New()
	client.SetBaseURL(s.baseUrl.String())
	client.SetCookieJar(jar)
	if !s.opts.DisableCloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", s.opts.UserAgent)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(s.baseUrl.Hostname()))
	client.SetTimeout(s.opts.timeout())

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return s.limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, s.tel, "yamisign.lib.forum.http")
	restyutil.DumpExchanges(client, s.dump)

	return session{http: client, jar: jar}, nil
}

// cookies lists what the jar would send to the forum root.
func (s *Site) cookies(sess session) accounts.CookieSet {
	return accounts.CookieSetFromHTTP(sess.jar.Cookies(s.baseUrl))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
