package forum

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"yamisign/lib/accounts"

	"github.com/stretchr/testify/require"
)

var sessionCookies = accounts.NewCookieSet(map[string]string{
	"EeqY_2132_auth":    "token",
	"EeqY_2132_saltkey": "salt",
})

func signPage(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie("EeqY_2132_auth"); err != nil {
		w.Write([]byte(`<div id="messagetext"><p>请先登录</p></div>`))
		return
	}
	w.Write([]byte(`<html><body>
		<div class="qdleft">
			<a href="plugin.php?id=zqlj_sign&amp;sign=8f2a" class="btna">点击打卡</a>
		</div>
	</body></html>`))
}

func TestSignSuccess(t *testing.T) {
	env := setup(t, &fakeForum{
		signPage: signPage,
		signAction: func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "8f2a", r.URL.Query().Get("sign"))
			w.Write([]byte(`<div id="messagetext" class="alert_right">
				<p>恭喜您，打卡成功！<script type="text/javascript">setTimeout("window.location.href ='plugin.php?id=zqlj_sign';", 2000);</script></p>
			</div>`))
		},
	})

	outcome := NewSigner(env.site).Sign(context.Background(), sessionCookies)
	require.Equal(t, SignOutcome{Succeeded: true, Detail: "恭喜您，打卡成功！"}, outcome)
	require.Equal(t, []string{
		"GET /" + DefaultSignPath,
		"GET /plugin.php?id=zqlj_sign&sign=8f2a",
	}, env.forum.Requests())
}

func TestSignButtonNotFound(t *testing.T) {
	env := setup(t, &fakeForum{
		signPage: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body><span class="btnvisted">今日已打卡</span></body></html>`))
		},
	})

	outcome := NewSigner(env.site).Sign(context.Background(), sessionCookies)
	require.Equal(t, SignOutcome{Succeeded: false, Detail: MsgSignButtonNotFound}, outcome)
}

func TestSignResultMissing(t *testing.T) {
	env := setup(t, &fakeForum{
		signPage: signPage,
		signAction: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body>maintenance</body></html>`))
		},
	})

	outcome := NewSigner(env.site).Sign(context.Background(), sessionCookies)
	require.Equal(t, SignOutcome{Succeeded: false, Detail: MsgSignResultMissing}, outcome)
}

func TestSignTransportError(t *testing.T) {
	env := setup(t, &fakeForum{signPage: signPage})
	env.srv.Close()

	outcome := NewSigner(env.site).Sign(context.Background(), sessionCookies)
	require.False(t, outcome.Succeeded)
	require.True(t, strings.HasPrefix(outcome.Detail, "Error during sign operation: "))
}

func TestExtractSignResult(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
		ok      bool
	}{
		{
			name:    "script is stripped",
			body:    `<div id="messagetext" class="alert_info"><p>Hello<script>alert('x')</script></p></div>`,
			message: "Hello",
			ok:      true,
		},
		{
			name:    "only the first paragraph",
			body:    `<div id="messagetext"><p> first </p><p>second</p></div>`,
			message: "first",
			ok:      true,
		},
		{
			name:    "inner markup is kept",
			body:    `<div id="messagetext"><p>got <b>10</b> points</p></div>`,
			message: "got <b>10</b> points",
			ok:      true,
		},
		{
			name:    "entities and quotes are returned as sent",
			body:    `<div id="messagetext"><p>You've signed in "today" &amp; got 3 points<script>x</script></p></div>`,
			message: `You've signed in "today" &amp; got 3 points`,
			ok:      true,
		},
		{
			name:    "paragraph attributes and nested divs",
			body:    `<div class="wrap"><div id="messagetext" class="alert_right"><div><p class="x">打卡成功<SCRIPT>y</SCRIPT></p></div></div></div>`,
			message: "打卡成功",
			ok:      true,
		},
		{
			name: "paragraph outside the block",
			body: `<p>elsewhere</p><div id="other"></div>`,
			ok:   false,
		},
		{
			name: "missing block",
			body: `<p>Hello</p>`,
			ok:   false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			message, ok, err := ExtractSignResult([]byte(c.body))
			require.NoError(t, err)
			require.Equal(t, c.ok, ok)
			require.Equal(t, c.message, message)
		})
	}
}
