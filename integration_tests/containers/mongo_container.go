package containers

import (
	"context"
	"fmt"
	"log"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

// SetupMongoContainer starts a MongoDB testcontainer and returns the
// container and its connection URI.
func SetupMongoContainer(ctx context.Context) (*mongodb.MongoDBContainer, string, error) {
	log.Println("Starting MongoDB container...")

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		return nil, "", fmt.Errorf("failed to start mongo container: %w", err)
	}

	uri, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		if terminateErr := mongoContainer.Terminate(ctx); terminateErr != nil {
			log.Printf("Failed to terminate mongo container: %v", terminateErr)
		}
		return nil, "", fmt.Errorf("failed to get mongo connection string: %w", err)
	}

	log.Printf("MongoDB container started and ready. URI: %s", uri)
	return mongoContainer, uri, nil
}
