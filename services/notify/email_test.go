package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"
	"yamisign/services/autosign"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupSmtp(t *testing.T) (smtpPort int, webUrl string) {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025/tcp", "1080/tcp"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Log(err)
		}
	})

	smtp, err := container.MappedPort(ctx, "1025/tcp")
	require.NoError(t, err)
	web, err := container.PortEndpoint(ctx, "1080/tcp", "http")
	require.NoError(t, err)
	return smtp.Int(), web
}

func TestEmailNotifier(t *testing.T) {
	port, web := setupSmtp(t)

	notifier, err := NewEmailNotifier(EmailConfig{
		Server:       "localhost",
		Port:         port,
		EmailAddress: "bot@email.com",
		Password:     "default",
		To:           []string{"admin@email.com"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, notifier.SendProgress(ctx, autosign.Report{Total: 1}))
	require.NoError(t, notifier.SendSummary(ctx, "Last 20 Sign Details\nalice: succeeded - ok"))

	client := resty.New()
	var body string
	require.Eventually(t, func() bool {
		res, err := client.R().Get(fmt.Sprintf("%s/messages/1.plain", web))
		if err != nil || res.IsError() {
			return false
		}
		body = res.String()
		return true
	}, 10*time.Second, 200*time.Millisecond)
	require.True(t, strings.Contains(body, "alice: succeeded - ok"), body)
}

func TestNewEmailNotifierValidation(t *testing.T) {
	_, err := NewEmailNotifier(EmailConfig{Server: "localhost", Port: 25})
	require.Error(t, err)
	_, err = NewEmailNotifier(EmailConfig{To: []string{"a@b.c"}})
	require.Error(t, err)
}
