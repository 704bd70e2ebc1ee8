package notify

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"
	"yamisign/lib/telemetry"
	"yamisign/services/autosign"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("yamisign.services.notify")

const (
	colorLoading  = 0xf1c40f
	colorProgress = 0x3498db
	colorDone     = 0x2ecc71
)

type WebhookConfig struct {
	Url      string `json:"url" yaml:"url"`
	Username string `json:"username" yaml:"username"`
}

type webhookField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type webhookFooter struct {
	Text string `json:"text"`
}

type webhookEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []webhookField `json:"fields,omitempty"`
	Footer      *webhookFooter `json:"footer,omitempty"`
}

type webhookMessage struct {
	Username string         `json:"username,omitempty"`
	Embeds   []webhookEmbed `json:"embeds"`
}

type webhookResponse struct {
	ID string `json:"id"`
}

// WebhookNotifier posts embeds to a Discord compatible webhook. The
// progress of a run is edited into a single message.
type WebhookNotifier struct {
	client   *resty.Client
	url      string
	username string

	mutex     sync.Mutex
	messageID string
}

func NewWebhookNotifier(config WebhookConfig, tel telemetry.API) (*WebhookNotifier, error) {
	parsed, err := url.Parse(config.Url)
	if err != nil {
		return nil, fmt.Errorf("parse webhook url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("parse webhook url: unsupported scheme %q", parsed.Scheme)
	}

	client := resty.New()
	client.SetTimeout(15 * time.Second)
	client.SetHeader("content-type", "application/json")
	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("webhook", tel), "yamisign.services.notify")

	return &WebhookNotifier{
		client:   client,
		url:      config.Url,
		username: config.Username,
	}, nil
}

func (w *WebhookNotifier) post(ctx context.Context, msg webhookMessage) (string, error) {
	var out webhookResponse
	res, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("wait", "true").
		SetBody(msg).
		SetResult(&out).
		Post(w.url)
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("webhook responded %s: %s", res.Status(), res.String())
	}
	return out.ID, nil
}

func (w *WebhookNotifier) edit(ctx context.Context, id string, msg webhookMessage) error {
	target, err := url.JoinPath(w.url, "messages", id)
	if err != nil {
		return err
	}
	res, err := w.client.R().
		SetContext(ctx).
		SetBody(msg).
		Patch(target)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("webhook responded %s: %s", res.Status(), res.String())
	}
	return nil
}

func progressEmbed(report autosign.Report) webhookEmbed {
	color := colorProgress
	if report.Finished() {
		color = colorDone
	}
	return webhookEmbed{
		Title:       report.Title(),
		Description: report.Description(),
		Color:       color,
		Fields: []webhookField{
			{Name: "Total Accounts", Value: strconv.Itoa(report.Total), Inline: true},
			{Name: "Success", Value: strconv.Itoa(report.Succeeded), Inline: true},
			{Name: "Failed", Value: strconv.Itoa(report.Failed), Inline: true},
		},
		Footer: &webhookFooter{Text: report.Footer()},
	}
}

// SendProgress posts a new message when a run starts and edits it for
// every following report of the same run.
func (w *WebhookNotifier) SendProgress(ctx context.Context, report autosign.Report) error {
	ctx, span := tracer.Start(ctx, "WebhookNotifier.SendProgress")
	defer span.End()

	w.mutex.Lock()
	defer w.mutex.Unlock()

	msg := webhookMessage{
		Username: w.username,
		Embeds:   []webhookEmbed{progressEmbed(report)},
	}

	starting := report.Processed == 0 && !report.Finished()
	var err error
	if starting || w.messageID == "" {
		w.messageID, err = w.post(ctx, msg)
	} else {
		err = w.edit(ctx, w.messageID, msg)
	}
	if report.Finished() {
		w.messageID = ""
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send progress")
		return fmt.Errorf("send progress: %w", err)
	}
	return nil
}

func (w *WebhookNotifier) SendSummary(ctx context.Context, text string) error {
	ctx, span := tracer.Start(ctx, "WebhookNotifier.SendSummary")
	defer span.End()

	title, body := splitSummary(text)
	color := colorDone
	if text == autosign.MsgLoadingAccounts {
		color = colorLoading
	}
	_, err := w.post(ctx, webhookMessage{
		Username: w.username,
		Embeds: []webhookEmbed{{
			Title:       title,
			Description: body,
			Color:       color,
		}},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send summary")
		return fmt.Errorf("send summary: %w", err)
	}
	return nil
}
