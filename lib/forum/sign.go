package forum

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"yamisign/lib/accounts"
	"yamisign/lib/assert"
	"yamisign/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const report_signer_sign = "signer.sign"

const (
	MsgSignButtonNotFound = "Sign button not found. Possibly already signed or page structure changed."
	MsgSignResultMissing  = "Failed to extract sign result message. The page may not have the expected content."
	msgSignErrorPrefix    = "Error during sign operation: "
	msgSignNoConfirmation = "Sign request completed without a confirmation message."
)

// SignOutcome is the result of one sign attempt, Detail is never empty.
type SignOutcome struct {
	Succeeded bool
	Detail    string
}

func signError(err error) SignOutcome {
	return SignOutcome{Succeeded: false, Detail: msgSignErrorPrefix + err.Error()}
}

// Signer performs the daily sign action. Like the Authenticator it never
// returns an error, failures are described by the outcome.
type Signer struct {
	site *Site
}

func NewSigner(site *Site) Signer {
	assert.NotNil(site)
	return Signer{site: site}
}

// Sign loads the sign page with the given session, follows the sign button
// and reads the confirmation message off the resulting page.
func (s Signer) Sign(ctx context.Context, cookies accounts.CookieSet) SignOutcome {
	ctx, span := tracer.Start(ctx, "Signer.Sign")
	defer span.End()

	outcome := s.sign(ctx, cookies)
	span.SetAttributes(
		attribute.Bool("succeeded", outcome.Succeeded),
		attribute.String("detail", outcome.Detail),
	)
	if !outcome.Succeeded {
		span.SetStatus(codes.Error, outcome.Detail)
	}
	return outcome
}

func (s Signer) sign(ctx context.Context, cookies accounts.CookieSet) SignOutcome {
	sess, err := s.site.newSession(cookies)
	if err != nil {
		s.site.tel.ReportBroken(report_signer_sign, err)
		return signError(err)
	}

	res, err := sess.http.R().
		SetContext(ctx).
		Get(s.site.opts.SignPath)
	if err != nil {
		return signError(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return signError(fmt.Errorf("parse sign page: %w", err))
	}

	// the forum hands out a fresh, possibly relative, action link per session
	buttons := htmlutil.GetAnchors(ctx, s.site.baseUrl, doc.Find("a."+s.site.opts.SignButtonClass))
	if len(buttons) == 0 {
		s.site.tel.ReportDebug("sign button not found", res.StatusCode())
		return SignOutcome{Succeeded: false, Detail: MsgSignButtonNotFound}
	}

	res, err = sess.http.R().
		SetContext(ctx).
		Get(buttons[0].Href)
	if err != nil {
		return signError(err)
	}

	message, ok, err := ExtractSignResult(res.Body())
	if err != nil {
		return signError(fmt.Errorf("parse sign result: %w", err))
	}
	if !ok {
		return SignOutcome{Succeeded: false, Detail: MsgSignResultMissing}
	}
	if message == "" {
		message = msgSignNoConfirmation
	}
	return SignOutcome{Succeeded: true, Detail: message}
}

// <div id="messagetext" ...> ... <p ...>message<script ...>...</script></p>
var signResultRegex = regexp.MustCompile(
	`(?is)<div[^>]*\bid\s*=\s*["']messagetext["'][^>]*>.*?<p(?:\s[^>]*)?>(.*?)</p>`,
)
var scriptStartRegex = regexp.MustCompile(`(?i)<script`)

// ExtractSignResult returns the first paragraph of the messagetext block as
// the forum wrote it, cut off at any script embedded after the message. ok
// is false when the block is missing.
func ExtractSignResult(body []byte) (message string, ok bool, err error) {
	groups := signResultRegex.FindSubmatch(body)
	if len(groups) < 2 {
		return "", false, nil
	}
	inner := groups[1]
	if loc := scriptStartRegex.FindIndex(inner); loc != nil {
		inner = inner[:loc[0]]
	}
	return strings.TrimSpace(string(inner)), true, nil
}
