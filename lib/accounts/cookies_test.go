package accounts

import (
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidSession(t *testing.T) {
	filter := DefaultSessionFilter()

	cases := []struct {
		name    string
		cookies map[string]string
		valid   bool
	}{
		{
			name:    "empty",
			cookies: map[string]string{},
			valid:   false,
		},
		{
			name: "only saltkey",
			cookies: map[string]string{
				"EeqY_2132_saltkey":   "salt",
				"EeqY_2132_lastvisit": "123",
			},
			valid: false,
		},
		{
			name: "auth and saltkey",
			cookies: map[string]string{
				"EeqY_2132_auth":      "token",
				"EeqY_2132_saltkey":   "salt",
				"EeqY_2132_lastvisit": "123",
				"EeqY_2132_sid":       "abc",
			},
			valid: true,
		},
		{
			name: "three matching",
			cookies: map[string]string{
				"EeqY_2132_auth":       "token",
				"EeqY_2132_saltkey":    "salt",
				"EeqY_2132_authorized": "1",
			},
			valid: false,
		},
		{
			name: "wrong prefix",
			cookies: map[string]string{
				"other_auth":    "token",
				"other_saltkey": "salt",
			},
			valid: false,
		},
		{
			name: "marker match is case sensitive",
			cookies: map[string]string{
				"EeqY_2132_AUTH":    "token",
				"EeqY_2132_saltkey": "salt",
			},
			valid: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.valid, filter.IsValidSession(NewCookieSet(c.cookies)))
		})
	}
}

func TestSessionFilterConfigurablePrefix(t *testing.T) {
	filter := NewSessionFilter("abcd_")
	cookies := NewCookieSet(map[string]string{
		"abcd_auth":         "token",
		"abcd_saltkey":      "salt",
		"EeqY_2132_auth":    "token",
		"EeqY_2132_saltkey": "salt",
	})

	filtered := filter.Filter(cookies)
	require.Equal(t, []string{"abcd_auth", "abcd_saltkey"}, filtered.Names())
	require.True(t, filter.IsValidSession(cookies))

	// an empty prefix accepts any name carrying a marker
	require.False(t, NewSessionFilter("").IsValidSession(cookies))
	require.Equal(t, "abcd_auth", filter.AuthCookie())
	require.Equal(t, "abcd_saltkey", filter.SaltkeyCookie())
}

func TestCookieSetImmutable(t *testing.T) {
	source := map[string]string{"a": "1"}
	set := NewCookieSet(source)
	source["a"] = "2"

	v, ok := set.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)

	copied := set.Map()
	copied["b"] = "3"
	require.Equal(t, 1, set.Len())
}

func TestCookieSetFromHTTP(t *testing.T) {
	set := CookieSetFromHTTP([]*http.Cookie{
		{Name: "b", Value: "1"},
		{Name: "a", Value: "2"},
		{Name: "b", Value: "3"},
	})
	require.Equal(t, []string{"a", "b"}, set.Names())
	v, _ := set.Get("b")
	require.Equal(t, "3", v)

	httpCookies := set.HTTPCookies()
	require.Len(t, httpCookies, 2)
	require.Equal(t, "a", httpCookies[0].Name)
}

func TestCookieSetJSON(t *testing.T) {
	var empty CookieSet
	encoded, err := json.Marshal(empty)
	require.NoError(t, err)
	require.Equal(t, "{}", string(encoded))

	var decoded CookieSet
	require.NoError(t, json.Unmarshal([]byte(`{"x":"y"}`), &decoded))
	require.True(t, decoded.Equal(NewCookieSet(map[string]string{"x": "y"})))
	require.True(t, empty.Equal(NewCookieSet(nil)))
}

func TestAccountClone(t *testing.T) {
	original := Account{
		ExternalID: "discord:1",
		Username:   "alice",
		Cookies: NewCookieSet(map[string]string{
			"EeqY_2132_auth":    "token",
			"EeqY_2132_saltkey": "salt",
		}),
		LastAuthenticatedAt: 1700000000,
		Valid:               true,
		AutoSign:            true,
	}

	clone := original.Clone()
	require.Equal(t, original, clone)
	require.NotEqual(t,
		reflect.ValueOf(original.Cookies.values).Pointer(),
		reflect.ValueOf(clone.Cookies.values).Pointer(),
	)

	clone.Username = "bob"
	clone.AutoSign = false
	clone.Cookies.values["EeqY_2132_auth"] = "changed"
	require.Equal(t, "alice", original.Username)
	require.True(t, original.AutoSign)
	auth, _ := original.Cookies.Get("EeqY_2132_auth")
	require.Equal(t, "token", auth)

	require.Equal(t, Account{ExternalID: "discord:2"}, Account{ExternalID: "discord:2"}.Clone())
}
