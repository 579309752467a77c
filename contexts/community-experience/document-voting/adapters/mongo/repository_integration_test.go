//go:build integration

package mongoadapter

import (
	"context"
	"fmt"
	"os"
	"testing"

	"docvote/contexts/community-experience/document-voting/adapters/storetest"

	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var testClient *mongo.Client

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tcmongo.Run(ctx, "mongo:7")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo container: %v\n", err)
		os.Exit(1)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get mongo connection string: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}
	testClient, err = mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect mongo: %v\n", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = testClient.Disconnect(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func setupRepository(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	database := testClient.Database("docvote_test")
	require.NoError(t, database.Drop(ctx))
	repo := NewRepository(database, nil)
	require.NoError(t, repo.EnsureIndexes(ctx))
	return repo
}

func TestRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Repository {
		return setupRepository(t)
	})
}
