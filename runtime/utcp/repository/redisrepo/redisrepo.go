// Package redisrepo is a Redis-backed ConcurrentToolRepository for
// multi-process UTCP client deployments, where several client instances
// need to see the same registered manuals. Grounded on the teacher's own
// use of github.com/redis/go-redis/v9 in registry/result_stream.go and the
// connection pattern in registry/cmd/registry/main.go (REDIS_URL,
// REDIS_PASSWORD env vars, redis.NewClient).
package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterToolRepository("redis", func() utcp.ConcurrentToolRepository {
		return New(redis.NewClient(&redis.Options{
			Addr:     envOr("REDIS_URL", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		}), "utcp")
	}, false)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// record is the JSON document stored per manual.
type record struct {
	Template map[string]any `json:"template"`
	Manual   map[string]any `json:"manual"`
}

// Store is a Redis-backed ConcurrentToolRepository. Manual documents live
// under <prefix>:manual:<name> hash keys; <prefix>:index is a set of
// registered manual names, used instead of the KEYS command (which would
// block a shared Redis instance under a large registry).
type Store struct {
	rdb    *redis.Client
	prefix string
	reg    *registry.Registry
}

// New constructs a Store using an already-connected client.
func New(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix, reg: registry.Global()}
}

func (s *Store) manualKey(name string) string { return s.prefix + ":manual:" + name }
func (s *Store) indexKey() string             { return s.prefix + ":index" }

func (s *Store) serializer() utcp.ManualSerializer {
	return utcp.ManualSerializer{Tool: utcp.ToolSerializer{CallTemplate: s.reg.CallTemplateSerializer()}}
}

// SaveManual stores tmpl and manual as one JSON document, atomically
// replacing any prior document under the same name.
func (s *Store) SaveManual(ctx context.Context, tmpl utcp.CallTemplate, manual *utcp.Manual) error {
	tmplDict, err := s.reg.CallTemplateSerializer().ToDict(tmpl)
	if err != nil {
		return fmt.Errorf("redisrepo: encode call template: %w", err)
	}
	manualDict, err := s.serializer().ToDict(manual)
	if err != nil {
		return fmt.Errorf("redisrepo: encode manual: %w", err)
	}
	payload, err := json.Marshal(record{Template: tmplDict, Manual: manualDict})
	if err != nil {
		return fmt.Errorf("redisrepo: marshal record: %w", err)
	}
	name := tmpl.TemplateName()
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.manualKey(name), payload, 0)
	pipe.SAdd(ctx, s.indexKey(), name)
	_, err = pipe.Exec(ctx)
	return err
}

// RemoveManual deletes the manual document and its index entry.
func (s *Store) RemoveManual(ctx context.Context, name string) (bool, error) {
	n, err := s.rdb.Del(ctx, s.manualKey(name)).Result()
	if err != nil {
		return false, err
	}
	_ = s.rdb.SRem(ctx, s.indexKey(), name).Err()
	return n > 0, nil
}

// RemoveTool removes a single tool from whichever manual owns it,
// rewriting that manual's document in place.
func (s *Store) RemoveTool(ctx context.Context, name string) (bool, error) {
	names, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return false, err
	}
	for _, manualName := range names {
		rec, ok, err := s.load(ctx, manualName)
		if err != nil || !ok {
			continue
		}
		tmpl, manual, err := s.decode(rec)
		if err != nil {
			continue
		}
		for i, t := range manual.Tools {
			if t.Name == name {
				manual.Tools = append(manual.Tools[:i], manual.Tools[i+1:]...)
				if err := s.SaveManual(ctx, tmpl, manual); err != nil {
					return false, err
				}
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) load(ctx context.Context, name string) (record, bool, error) {
	raw, err := s.rdb.Get(ctx, s.manualKey(name)).Result()
	if err == redis.Nil {
		return record{}, false, nil
	}
	if err != nil {
		return record{}, false, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return record{}, false, fmt.Errorf("redisrepo: unmarshal record %q: %w", name, err)
	}
	return rec, true, nil
}

func (s *Store) decode(rec record) (utcp.CallTemplate, *utcp.Manual, error) {
	tmpl, err := s.reg.CallTemplateSerializer().ValidateDict(rec.Template)
	if err != nil {
		return nil, nil, err
	}
	manual, err := s.serializer().ValidateDict(rec.Manual)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, manual, nil
}

// GetTool scans every registered manual for a tool named name. Acceptable
// for the registry sizes this transport targets; a production deployment
// with a very large combined catalog would add a secondary name->manual
// index, left out here since spec.md does not call for one.
func (s *Store) GetTool(ctx context.Context, name string) (*utcp.Tool, error) {
	tools, err := s.GetTools(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		if t.Name == name {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

// GetTools flattens every manual's tool list.
func (s *Store) GetTools(ctx context.Context) ([]utcp.Tool, error) {
	manuals, err := s.GetManuals(ctx)
	if err != nil {
		return nil, err
	}
	var out []utcp.Tool
	for _, m := range manuals {
		out = append(out, m.Tools...)
	}
	return out, nil
}

// GetToolsByManual returns the named manual's own tool list.
func (s *Store) GetToolsByManual(ctx context.Context, manualName string) ([]utcp.Tool, bool, error) {
	rec, ok, err := s.load(ctx, manualName)
	if err != nil || !ok {
		return nil, ok, err
	}
	_, manual, err := s.decode(rec)
	if err != nil {
		return nil, false, err
	}
	return manual.Tools, true, nil
}

// GetManual returns the named manual.
func (s *Store) GetManual(ctx context.Context, name string) (*utcp.Manual, bool, error) {
	rec, ok, err := s.load(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	_, manual, err := s.decode(rec)
	if err != nil {
		return nil, false, err
	}
	return manual, true, nil
}

// GetManuals returns every registered manual.
func (s *Store) GetManuals(ctx context.Context) ([]utcp.Manual, error) {
	names, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]utcp.Manual, 0, len(names))
	for _, name := range names {
		rec, ok, err := s.load(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		_, manual, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *manual)
	}
	return out, nil
}

// GetManualCallTemplate returns the call template a manual was registered
// with.
func (s *Store) GetManualCallTemplate(ctx context.Context, name string) (utcp.CallTemplate, bool, error) {
	rec, ok, err := s.load(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	tmpl, _, err := s.decode(rec)
	if err != nil {
		return nil, false, err
	}
	return tmpl, true, nil
}

// GetManualCallTemplates returns every registered manual's call template.
func (s *Store) GetManualCallTemplates(ctx context.Context) ([]utcp.CallTemplate, error) {
	names, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]utcp.CallTemplate, 0, len(names))
	for _, name := range names {
		rec, ok, err := s.load(ctx, name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		tmpl, _, err := s.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, nil
}

var _ utcp.ConcurrentToolRepository = (*Store)(nil)
