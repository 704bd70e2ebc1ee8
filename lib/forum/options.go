package forum

import (
	"time"
	"yamisign/lib/accounts"
)

// Options describes the forum being signed into. Every empty field falls
// back to the value used by bbs.yamibo.com.
type Options struct {
	BaseUrl         string `json:"base_url" yaml:"base_url"`
	LoginPath       string `json:"login_path" yaml:"login_path"`
	LoginSubmitPath string `json:"login_submit_path" yaml:"login_submit_path"`
	LoginCheckPath  string `json:"login_check_path" yaml:"login_check_path"`
	SignPath        string `json:"sign_path" yaml:"sign_path"`

	// CookiePrefix is the prefix the forum puts in front of its cookie names,
	// it is rotated by the forum from time to time.
	CookiePrefix    string `json:"cookie_prefix" yaml:"cookie_prefix"`
	SignButtonClass string `json:"sign_button_class" yaml:"sign_button_class"`

	TimeoutSeconds    int     `json:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	UserAgent         string  `json:"user_agent" yaml:"user_agent"`

	DisableCloudflareBypass bool `json:"disable_cloudflare_bypass" yaml:"disable_cloudflare_bypass"`
	// DumpDir, if set, receives a file per http exchange. Login exchanges
	// are written with their bodies redacted.
	DumpDir string `json:"dump_dir" yaml:"dump_dir"`
}

const (
	DefaultBaseUrl         = "https://bbs.yamibo.com/"
	DefaultLoginPath       = "member.php?mod=logging&action=login"
	DefaultLoginSubmitPath = "member.php?mod=logging&action=login&loginsubmit=yes&inajax=1"
	DefaultLoginCheckPath  = "forum-49-1.html"
	DefaultSignPath        = "plugin.php?id=zqlj_sign"
	DefaultSignButtonClass = "btna"
	DefaultTimeout         = 15 * time.Second
	DefaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

func (o Options) withDefaults() Options {
	if o.BaseUrl == "" {
		o.BaseUrl = DefaultBaseUrl
	}
	if o.LoginPath == "" {
		o.LoginPath = DefaultLoginPath
	}
	if o.LoginSubmitPath == "" {
		o.LoginSubmitPath = DefaultLoginSubmitPath
	}
	if o.LoginCheckPath == "" {
		o.LoginCheckPath = DefaultLoginCheckPath
	}
	if o.SignPath == "" {
		o.SignPath = DefaultSignPath
	}
	if o.CookiePrefix == "" {
		o.CookiePrefix = accounts.DefaultCookiePrefix
	}
	if o.SignButtonClass == "" {
		o.SignButtonClass = DefaultSignButtonClass
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = int(DefaultTimeout / time.Second)
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 2
	}
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	return o
}

func (o Options) timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}
