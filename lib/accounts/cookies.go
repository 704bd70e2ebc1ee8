package accounts

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
)

// CookieSet is an immutable name -> value mapping of forum cookies.
// Build a new one instead of modifying an existing one.
type CookieSet struct {
	values map[string]string
}

func NewCookieSet(values map[string]string) CookieSet {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return CookieSet{values: copied}
}

// CookieSetFromHTTP builds a CookieSet out of a cookie jar listing, later
// duplicates of the same name win.
func CookieSetFromHTTP(cookies []*http.Cookie) CookieSet {
	values := make(map[string]string, len(cookies))
	for _, c := range cookies {
		values[c.Name] = c.Value
	}
	return CookieSet{values: values}
}

func (c CookieSet) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

func (c CookieSet) Len() int {
	return len(c.values)
}

// Names returns the cookie names in sorted order.
func (c CookieSet) Names() []string {
	names := make([]string, 0, len(c.values))
	for k := range c.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns a copy of the underlying values.
func (c CookieSet) Map() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c CookieSet) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(c.values))
	for _, name := range c.Names() {
		out = append(out, &http.Cookie{Name: name, Value: c.values[name]})
	}
	return out
}

func (c CookieSet) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}

func (c *CookieSet) UnmarshalJSON(data []byte) error {
	values := map[string]string{}
	err := json.Unmarshal(data, &values)
	if err != nil {
		return err
	}
	c.values = values
	return nil
}

const DefaultCookiePrefix = "EeqY_2132_"

// SessionFilter picks the cookies that prove a session out of a jar.
// A cookie is kept when its name starts with Prefix and contains any of
// Markers (case-sensitive).
type SessionFilter struct {
	Prefix  string
	Markers []string
}

func DefaultSessionFilter() SessionFilter {
	return NewSessionFilter(DefaultCookiePrefix)
}

func NewSessionFilter(prefix string) SessionFilter {
	return SessionFilter{
		Prefix:  prefix,
		Markers: []string{"auth", "saltkey"},
	}
}

func (f SessionFilter) matches(name string) bool {
	if !strings.HasPrefix(name, f.Prefix) {
		return false
	}
	for _, m := range f.Markers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// Filter returns the session subset of a cookie set.
func (f SessionFilter) Filter(cookies CookieSet) CookieSet {
	values := map[string]string{}
	for name, value := range cookies.values {
		if f.matches(name) {
			values[name] = value
		}
	}
	return CookieSet{values: values}
}

// IsValidSession is true iff exactly two session cookies are present,
// which is what the forum sets for a fully authenticated session.
func (f SessionFilter) IsValidSession(cookies CookieSet) bool {
	return f.Filter(cookies).Len() == 2
}

// AuthCookie and SaltkeyCookie are the full cookie names under this prefix.
func (f SessionFilter) AuthCookie() string {
	return f.Prefix + "auth"
}

func (f SessionFilter) SaltkeyCookie() string {
	return f.Prefix + "saltkey"
}

// Equal reports whether both sets hold the same names and values, a nil
// set equals an empty one.
func (c CookieSet) Equal(other CookieSet) bool {
	if len(c.values) != len(other.values) {
		return false
	}
	for k, v := range c.values {
		ov, ok := other.values[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}
