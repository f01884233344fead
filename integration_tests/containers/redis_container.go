package containers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// SetupRedisContainer starts a Redis container and returns it with its
// host:port address.
func SetupRedisContainer(ctx context.Context) (testcontainers.Container, string, error) {
	log.Println("Starting Redis container...")

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForAll(
				wait.ForLog("Ready to accept connections"),
				wait.ForListeningPort("6379/tcp"),
			).WithDeadline(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start redis container: %w", err)
	}

	addr, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		if terminateErr := redisContainer.Terminate(ctx); terminateErr != nil {
			log.Printf("Failed to terminate redis container: %v", terminateErr)
		}
		return nil, "", fmt.Errorf("failed to get redis endpoint: %w", err)
	}

	log.Printf("Redis container started and ready. Addr: %s", addr)
	return redisContainer, addr, nil
}
