// Package redisloader is a Redis-backed VariableLoader, for variable
// values shared across a fleet of UTCP clients (e.g. a rotated API key
// pushed to Redis by a secrets-rotation job) rather than read from a local
// file. Grounded on the teacher's use of github.com/redis/go-redis/v9 in
// registry/result_stream.go.
package redisloader

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterVariableLoader("redis", redisLoaderSerializer{}, false)
}

// Redis resolves variables from Redis string keys, each variable name
// prefixed with KeyPrefix. The VariableLoader interface is synchronous and
// carries no context, so Get uses context.Background() for each round
// trip — the same tradeoff the teacher's own Get-style accessors make
// where no caller context is threaded through.
type Redis struct {
	Client    *redis.Client
	KeyPrefix string
}

func (Redis) LoaderType() string { return "redis" }

func (r Redis) Get(key string) (string, bool) {
	if r.Client == nil {
		return "", false
	}
	val, err := r.Client.Get(context.Background(), r.KeyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// redisLoaderSerializer serializes a Redis loader's configuration.
// Connection details (Addr, Password) are read from REDIS_URL and
// REDIS_PASSWORD, mirroring registry/cmd/registry/main.go's env-driven
// connection setup, since a manual's JSON config should not carry Redis
// credentials inline.
type redisLoaderSerializer struct{}

func (redisLoaderSerializer) ToDict(obj utcp.VariableLoader) (map[string]any, error) {
	r, ok := obj.(Redis)
	if !ok {
		return nil, &utcp.ErrSerializerValidation{Message: "expected Redis"}
	}
	return map[string]any{
		"variable_loader_type": "redis",
		"key_prefix":           r.KeyPrefix,
	}, nil
}

func (redisLoaderSerializer) ValidateDict(data map[string]any) (utcp.VariableLoader, error) {
	prefix, _ := data["key_prefix"].(string)
	addr := envOr("REDIS_URL", "localhost:6379")
	client := redis.NewClient(&redis.Options{Addr: addr, Password: envOr("REDIS_PASSWORD", "")})
	return Redis{Client: client, KeyPrefix: prefix}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
