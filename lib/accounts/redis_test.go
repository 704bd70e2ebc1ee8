package accounts

import (
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	testcontainers.SkipIfProviderIsNotHealthy(t)

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
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

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)
	return endpoint
}

func TestRedisStore(t *testing.T) {
	url := setupRedis(t)

	store, err := NewRedisStore(context.Background(), url, "test")
	require.NoError(t, err)
	defer store.Close()

	testStoreContract(t, store)
}

func TestRedisStoreRequiresUrl(t *testing.T) {
	_, err := NewRedisStore(context.Background(), " ", "")
	require.Error(t, err)
}
