package redisloader

import (
	"context"
	"fmt"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis mirrors repository/redisrepo's container helper, skipping the
// suite rather than failing the build when Docker isn't available.
func setupRedis(t *testing.T) *redis.Client {
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
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
	}()
	if err != nil {
		t.Skipf("docker not available, skipping redisloader test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, rdb.Ping(ctx).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisLoaderGetReturnsStoredValue(t *testing.T) {
	rdb := setupRedis(t)
	require.NoError(t, rdb.Set(context.Background(), "fleet_API_KEY", "s3cr3t", 0).Err())

	loader := Redis{Client: rdb, KeyPrefix: "fleet_"}
	require.Equal(t, "redis", loader.LoaderType())

	val, ok := loader.Get("API_KEY")
	require.True(t, ok)
	require.Equal(t, "s3cr3t", val)
}

func TestRedisLoaderGetMissingKeyReturnsFalse(t *testing.T) {
	rdb := setupRedis(t)
	loader := Redis{Client: rdb, KeyPrefix: "fleet_"}

	_, ok := loader.Get("NOPE")
	require.False(t, ok)
}

func TestRedisLoaderGetWithNilClientReturnsFalse(t *testing.T) {
	loader := Redis{}
	_, ok := loader.Get("ANYTHING")
	require.False(t, ok)
}

func TestRedisLoaderSerializerRoundTrips(t *testing.T) {
	t.Setenv("REDIS_URL", "localhost:6399")
	t.Setenv("REDIS_PASSWORD", "")

	loader := Redis{Client: redis.NewClient(&redis.Options{Addr: "localhost:6399"}), KeyPrefix: "fleet_"}
	dict, err := redisLoaderSerializer{}.ToDict(loader)
	require.NoError(t, err)
	require.Equal(t, "redis", dict["variable_loader_type"])
	require.Equal(t, "fleet_", dict["key_prefix"])

	restored, err := redisLoaderSerializer{}.ValidateDict(dict)
	require.NoError(t, err)
	rl, ok := restored.(Redis)
	require.True(t, ok)
	require.Equal(t, "fleet_", rl.KeyPrefix)
}

type fakeLoader struct{}

func (fakeLoader) LoaderType() string        { return "fake" }
func (fakeLoader) Get(string) (string, bool) { return "", false }

func TestRedisLoaderSerializerRejectsWrongType(t *testing.T) {
	_, err := redisLoaderSerializer{}.ToDict(fakeLoader{})
	require.Error(t, err)
}
