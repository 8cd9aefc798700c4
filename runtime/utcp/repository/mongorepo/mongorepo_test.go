package mongorepo

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/goadesign/utcp-go/runtime/utcp"
	_ "github.com/goadesign/utcp-go/runtime/utcp/transport"
)

// setupMongo starts a disposable mongo:7 container, ported from the
// teacher's registry/store/mongo/mongo_test.go setupMongoDB, skipping the
// suite when Docker is unavailable.
func setupMongo(t *testing.T) *mongo.Collection {
	t.Helper()
	ctx := context.Background()

	var (
		container testcontainers.Container
		err       error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker not available: %v", r)
			}
		}()
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
				WaitingFor:   wait.ForLog("Waiting for connections"),
				Tmpfs:        map[string]string{"/data/db": "rw"},
			},
			Started: true,
		})
	}()
	if err != nil {
		t.Skipf("docker not available, skipping mongorepo test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	uri := fmt.Sprintf("mongodb://%s:%s", host, port.Port())
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	collection := client.Database("utcp_test").Collection(t.Name())
	require.NoError(t, collection.Drop(ctx))
	return collection
}

func sampleManual(toolNames ...string) (utcp.CallTemplate, *utcp.Manual) {
	tmpl := utcp.HTTPCallTemplate{CallTemplateBase: utcp.CallTemplateBase{Name: "weather_api"}, URL: "https://example.test"}
	m := &utcp.Manual{UTCPVersion: "1.0.0", ManualVersion: "1.0.0"}
	for _, name := range toolNames {
		m.Tools = append(m.Tools, utcp.Tool{Name: name, Description: "does things"})
	}
	return tmpl, m
}

func TestMongoStoreSaveAndGetManualRoundTrips(t *testing.T) {
	collection := setupMongo(t)
	store := New(collection)
	ctx := context.Background()

	tmpl, manual := sampleManual("get_forecast")
	require.NoError(t, store.SaveManual(ctx, tmpl, manual))

	got, ok, err := store.GetManual(ctx, "weather_api")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Tools, 1)
	require.Equal(t, "get_forecast", got.Tools[0].Name)
}

func TestMongoStoreSaveManualUpsertsOnSameName(t *testing.T) {
	collection := setupMongo(t)
	store := New(collection)
	ctx := context.Background()

	tmpl, manual := sampleManual("v1")
	require.NoError(t, store.SaveManual(ctx, tmpl, manual))

	_, manualV2 := sampleManual("v2")
	require.NoError(t, store.SaveManual(ctx, tmpl, manualV2))

	manuals, err := store.GetManuals(ctx)
	require.NoError(t, err)
	require.Len(t, manuals, 1, "replacing a manual under the same name must not leave a duplicate document")
	require.Equal(t, "v2", manuals[0].Tools[0].Name)
}

func TestMongoStoreRemoveManualDeletesDocument(t *testing.T) {
	collection := setupMongo(t)
	store := New(collection)
	ctx := context.Background()

	tmpl, manual := sampleManual("x")
	require.NoError(t, store.SaveManual(ctx, tmpl, manual))

	removed, err := store.RemoveManual(ctx, "weather_api")
	require.NoError(t, err)
	require.True(t, removed)

	_, ok, err := store.GetManual(ctx, "weather_api")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMongoStoreRemoveToolRewritesOwningManual(t *testing.T) {
	collection := setupMongo(t)
	store := New(collection)
	ctx := context.Background()

	tmpl, manual := sampleManual("keep_me", "drop_me")
	require.NoError(t, store.SaveManual(ctx, tmpl, manual))

	removed, err := store.RemoveTool(ctx, "drop_me")
	require.NoError(t, err)
	require.True(t, removed)

	tools, ok, err := store.GetToolsByManual(ctx, "weather_api")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, tools, 1)
	require.Equal(t, "keep_me", tools[0].Name)
}

func TestMongoStoreGetManualCallTemplatesListsAll(t *testing.T) {
	collection := setupMongo(t)
	store := New(collection)
	ctx := context.Background()

	tmpl, manual := sampleManual("a")
	require.NoError(t, store.SaveManual(ctx, tmpl, manual))

	tmpls, err := store.GetManualCallTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, tmpls, 1)
	require.Equal(t, "weather_api", tmpls[0].TemplateName())
}
