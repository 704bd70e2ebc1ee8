package forum

import (
	"regexp"
	"strings"
	"yamisign/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Welcome is the message the forum greets a freshly logged in user with.
type Welcome struct {
	Message string
	// Username is empty when the response shape does not carry one.
	Username string
	// Shape names the parser that produced the welcome, "raw" for the fallback.
	Shape string
}

type welcomeParser func(body string) (Welcome, bool)

// welcomeParsers are tried in order, the first match wins.
var welcomeParsers = []welcomeParser{
	parseScriptWelcome,
	parseAssignmentWelcome,
	parseMessageTextWelcome,
}

// ParseWelcome extracts the one line welcome message from a login response.
// Bodies matching no known shape are returned verbatim.
func ParseWelcome(body string) Welcome {
	for _, parse := range welcomeParsers {
		welcome, ok := parse(body)
		if ok {
			return welcome
		}
	}
	return Welcome{Message: body, Shape: "raw"}
}

// succeedhandle_xxx('<redirect url>', '<message>', {'username':'<name>', ...})
var succeedHandleRegex = regexp.MustCompile(
	`succeedhandle_\w*\(\s*'((?:[^'\\]|\\.)*)'\s*,\s*'((?:[^'\\]|\\.)*)'\s*(?:,\s*\{([^}]*)\})?`,
)
var scriptUsernameRegex = regexp.MustCompile(`'username'\s*:\s*'((?:[^'\\]|\\.)*)'`)

var jsUnescaper = strings.NewReplacer(`\'`, `'`, `\\`, `\`, `\"`, `"`)

func parseScriptWelcome(body string) (Welcome, bool) {
	groups := succeedHandleRegex.FindStringSubmatch(body)
	if len(groups) < 3 {
		return Welcome{}, false
	}
	message := strings.TrimSpace(jsUnescaper.Replace(groups[2]))
	if message == "" {
		return Welcome{}, false
	}

	welcome := Welcome{Message: message, Shape: "script"}
	if len(groups) >= 4 {
		userGroups := scriptUsernameRegex.FindStringSubmatch(groups[3])
		if len(userGroups) >= 2 {
			welcome.Username = jsUnescaper.Replace(userGroups[1])
		}
	}
	return welcome, true
}

var scriptBlockRegex = regexp.MustCompile(`(?is)<script[^>]*>(.*?)</script>`)

// [var|let|const] <ident> = '<message>'
var assignmentRegex = regexp.MustCompile(
	`(?:^|[^\w$.])(?:(?:var|let|const)\s+)?([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*=\s*'((?:[^'\\]|\\.)*)'`,
)

// redirects are assigned the same way, they never carry the message
var redirectTargets = map[string]bool{"href": true, "location": true}

func parseAssignmentWelcome(body string) (Welcome, bool) {
	for _, block := range scriptBlockRegex.FindAllStringSubmatch(body, -1) {
		for _, groups := range assignmentRegex.FindAllStringSubmatch(block[1], -1) {
			ident := groups[1]
			if i := strings.LastIndex(ident, "."); i >= 0 {
				ident = ident[i+1:]
			}
			if redirectTargets[ident] {
				continue
			}
			message := strings.TrimSpace(jsUnescaper.Replace(groups[2]))
			if message == "" {
				continue
			}
			return Welcome{Message: message, Shape: "assignment"}, true
		}
	}
	return Welcome{}, false
}

// <div id="messagetext" ...><p>... <font ...>username</font> ...</p></div>
func parseMessageTextWelcome(body string) (Welcome, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return Welcome{}, false
	}
	p := doc.Find("div#messagetext p").First()
	if p.Length() == 0 {
		return Welcome{}, false
	}
	font := p.Find("font").First()
	if font.Length() == 0 {
		return Welcome{}, false
	}

	message := htmlutil.CleanText(htmlutil.GetText(p.Nodes[0]))
	if message == "" {
		return Welcome{}, false
	}
	return Welcome{
		Message:  message,
		Username: htmlutil.CleanText(font.Text()),
		Shape:    "messagetext",
	}, true
}
