package forum

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"yamisign/lib/accounts"
	"yamisign/lib/assert"
	"yamisign/lib/chrono"
	"yamisign/lib/restyutil"
	"yamisign/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_authenticator_login   = "authenticator.login"
	report_authenticator_lookup  = "authenticator.lookup"
	report_authenticator_persist = "authenticator.persist"
)

const (
	msgLoginTimeout      = "Login failed: Timeout."
	msgLoginFailedPrefix = "Login failed: "
	msgInvalidQuestionID = "Login failed: invalid security question id."
	msgSessionNotSaved   = " (the session could not be saved, try again later)"
)

// PasswordCredentials log in through the forum's login form. QuestionID is
// one of the forum's security questions (1-7), 0 meaning none is set.
type PasswordCredentials struct {
	Username   string
	Password   string
	QuestionID int
	Answer     string
}

// CookieCredentials are the values of an existing session's auth and
// saltkey cookies, copied out of a browser.
type CookieCredentials struct {
	Auth    string
	Saltkey string
}

// Authenticator turns credentials into a validated session. It never
// returns an error, every failure is described by the returned message
// and a non valid account.
type Authenticator struct {
	site  *Site
	store accounts.Store
	clock chrono.TimeAPI
	tel   telemetry.API
}

func NewAuthenticator(site *Site, store accounts.Store, clock chrono.TimeAPI) Authenticator {
	assert.NotNil(site)
	assert.NotNil(store)
	assert.NotNil(clock)
	return Authenticator{
		site:  site,
		store: store,
		clock: clock,
		tel:   site.tel,
	}
}

// existing returns the stored account for the id, or a fresh one.
func (a Authenticator) existing(ctx context.Context, externalID string) accounts.Account {
	acc, err := a.store.GetByID(ctx, externalID)
	if errors.Is(err, accounts.ErrNotFound) {
		return accounts.Account{ExternalID: externalID}
	}
	if err != nil {
		a.tel.ReportWarning(report_authenticator_lookup, err, externalID)
		return accounts.Account{ExternalID: externalID}
	}
	return acc.Clone()
}

func (a Authenticator) transportFailure(span trace.Span, err error, secrets ...string) string {
	span.RecordError(err)
	span.SetStatus(codes.Error, "transport error")
	if isTimeout(err) {
		return msgLoginTimeout
	}
	a.tel.ReportWarning(report_authenticator_login, err)
	return msgLoginFailedPrefix + Redact(err.Error(), secrets...)
}

// succeed persists a valid account, keeping whatever the store already
// knows that a login does not change (the autosign toggle).
func (a Authenticator) succeed(ctx context.Context, span trace.Span, message string, acc accounts.Account) (string, accounts.Account) {
	acc.Valid = true
	acc.LastAuthenticatedAt = a.clock.Now().Unix()

	err := a.store.Upsert(ctx, acc)
	if err != nil {
		a.tel.ReportBroken(report_authenticator_persist, err, acc.ExternalID)
		span.RecordError(err)
		message += msgSessionNotSaved
	}
	span.SetStatus(codes.Ok, "logged in")
	return message, acc
}

// LoginPassword logs in with a username and password.
func (a Authenticator) LoginPassword(ctx context.Context, externalID string, creds PasswordCredentials) (string, accounts.Account) {
	ctx, span := tracer.Start(ctx, "Authenticator.LoginPassword")
	defer span.End()
	span.SetAttributes(
		attribute.String("external_id", externalID),
		attribute.String("username", creds.Username),
		attribute.Int("question_id", creds.QuestionID),
	)

	acc := a.existing(ctx, externalID)
	acc.Username = creds.Username
	acc.Valid = false

	if creds.QuestionID < 0 || creds.QuestionID > 7 {
		span.SetStatus(codes.Error, "invalid question id")
		return msgInvalidQuestionID, acc
	}
	secrets := []string{creds.Password, creds.Answer}

	sess, err := a.site.newSession(accounts.CookieSet{})
	if err != nil {
		return a.transportFailure(span, err, secrets...), acc
	}
	// bodies of login exchanges carry the password
	reqCtx := restyutil.WithSensitive(ctx)

	// the login page hands out the baseline cookies the submit expects
	_, err = sess.http.R().
		SetContext(reqCtx).
		Get(a.site.opts.LoginPath)
	if err != nil {
		return a.transportFailure(span, err, secrets...), acc
	}

	form := map[string]string{
		"username":   creds.Username,
		"password":   creds.Password,
		"questionid": strconv.Itoa(creds.QuestionID),
	}
	if creds.QuestionID != 0 {
		form["answer"] = creds.Answer
	}
	res, err := sess.http.R().
		SetContext(reqCtx).
		SetFormData(form).
		Post(a.site.opts.LoginSubmitPath)
	if err != nil {
		return a.transportFailure(span, err, secrets...), acc
	}

	session := a.site.filter.Filter(a.site.cookies(sess))
	acc.Cookies = session
	if session.Len() != 2 {
		span.SetStatus(codes.Error, "authentication rejected")
		span.SetAttributes(attribute.Int("session_cookies", session.Len()))
		return a.rejected(res, secrets...), acc
	}

	welcome := ParseWelcome(res.String())
	span.SetAttributes(attribute.String("welcome_shape", welcome.Shape))
	return a.succeed(ctx, span, welcome.Message, acc)
}

func (a Authenticator) rejected(res *resty.Response, secrets ...string) string {
	a.tel.ReportDebug(
		"login rejected",
		res.StatusCode(),
	)
	return msgLoginFailedPrefix + Redact(res.String(), secrets...)
}

// LoginCookie validates an existing session given its cookie values.
func (a Authenticator) LoginCookie(ctx context.Context, externalID string, creds CookieCredentials) (string, accounts.Account) {
	ctx, span := tracer.Start(ctx, "Authenticator.LoginCookie")
	defer span.End()
	span.SetAttributes(attribute.String("external_id", externalID))

	acc := a.existing(ctx, externalID)
	acc.Valid = false

	values := map[string]string{}
	if creds.Auth != "" {
		values[a.site.filter.AuthCookie()] = creds.Auth
	}
	if creds.Saltkey != "" {
		values[a.site.filter.SaltkeyCookie()] = creds.Saltkey
	}
	supplied := accounts.NewCookieSet(values)
	acc.Cookies = supplied
	secrets := []string{creds.Auth, creds.Saltkey}

	sess, err := a.site.newSession(supplied)
	if err != nil {
		return a.transportFailure(span, err, secrets...), acc
	}
	res, err := sess.http.R().
		SetContext(restyutil.WithSensitive(ctx)).
		Get(a.site.opts.LoginCheckPath)
	if err != nil {
		return a.transportFailure(span, err, secrets...), acc
	}

	if !a.site.filter.IsValidSession(supplied) {
		span.SetStatus(codes.Error, "authentication rejected")
		return a.rejected(res, secrets...), acc
	}

	welcome := ParseWelcome(res.String())
	span.SetAttributes(attribute.String("welcome_shape", welcome.Shape))
	if welcome.Username != "" {
		acc.Username = welcome.Username
	}
	return a.succeed(ctx, span, welcome.Message, acc)
}

func (c PasswordCredentials) String() string {
	return fmt.Sprintf("PasswordCredentials{Username: %s, QuestionID: %d}", c.Username, c.QuestionID)
}

func (c CookieCredentials) String() string {
	return "CookieCredentials{...}"
}
