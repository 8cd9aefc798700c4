// Package mongorepo is a MongoDB-backed ConcurrentToolRepository, for
// deployments that want manual registrations to survive a client restart.
// Grounded field-for-field on the teacher's registry/store/mongo.Store:
// same ReplaceOne-with-upsert save, FindOne/mongo.ErrNoDocuments not-found
// mapping, and Find+cursor.All list pattern.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterToolRepository("mongo", func() utcp.ConcurrentToolRepository {
		uri := envOr("MONGO_URI", "mongodb://localhost:27017")
		dbName := envOr("MONGO_DATABASE", "utcp")
		collName := envOr("MONGO_COLLECTION", "manuals")
		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			return nil
		}
		return New(client.Database(dbName).Collection(collName))
	}, false)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// manualDocument is the BSON document representation of a registered
// manual: its call template and manual, both stored in their serialized
// dict form so the document schema follows the registry's plugin-tagged
// serializers rather than duplicating Go struct layout in BSON tags.
type manualDocument struct {
	Name     string         `bson:"_id"`
	Template map[string]any `bson:"template"`
	Manual   map[string]any `bson:"manual"`
}

// Store is a MongoDB implementation of ConcurrentToolRepository.
type Store struct {
	collection *mongo.Collection
	reg        *registry.Registry
}

// New creates a Store using the provided collection, which should come
// from an already-connected mongo.Client.
func New(collection *mongo.Collection) *Store {
	return &Store{collection: collection, reg: registry.Global()}
}

func (s *Store) serializer() utcp.ManualSerializer {
	return utcp.ManualSerializer{Tool: utcp.ToolSerializer{CallTemplate: s.reg.CallTemplateSerializer()}}
}

func (s *Store) decode(doc *manualDocument) (utcp.CallTemplate, *utcp.Manual, error) {
	tmpl, err := s.reg.CallTemplateSerializer().ValidateDict(doc.Template)
	if err != nil {
		return nil, nil, err
	}
	manual, err := s.serializer().ValidateDict(doc.Manual)
	if err != nil {
		return nil, nil, err
	}
	return tmpl, manual, nil
}

// SaveManual upserts tmpl and manual as a single document keyed by the
// template's name.
func (s *Store) SaveManual(ctx context.Context, tmpl utcp.CallTemplate, manual *utcp.Manual) error {
	tmplDict, err := s.reg.CallTemplateSerializer().ToDict(tmpl)
	if err != nil {
		return fmt.Errorf("mongorepo: encode call template: %w", err)
	}
	manualDict, err := s.serializer().ToDict(manual)
	if err != nil {
		return fmt.Errorf("mongorepo: encode manual: %w", err)
	}
	name := tmpl.TemplateName()
	doc := manualDocument{Name: name, Template: tmplDict, Manual: manualDict}
	opts := options.Replace().SetUpsert(true)
	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": name}, doc, opts)
	if err != nil {
		return fmt.Errorf("mongorepo: save manual %q: %w", name, err)
	}
	return nil
}

// RemoveManual deletes the document for name.
func (s *Store) RemoveManual(ctx context.Context, name string) (bool, error) {
	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return false, fmt.Errorf("mongorepo: remove manual %q: %w", name, err)
	}
	return result.DeletedCount > 0, nil
}

// RemoveTool removes a single tool from whichever manual owns it.
func (s *Store) RemoveTool(ctx context.Context, name string) (bool, error) {
	manuals, err := s.allDocuments(ctx)
	if err != nil {
		return false, err
	}
	for _, doc := range manuals {
		tmpl, manual, err := s.decode(&doc)
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

func (s *Store) findOne(ctx context.Context, name string) (*manualDocument, bool, error) {
	var doc manualDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("mongorepo: get manual %q: %w", name, err)
	}
	return &doc, true, nil
}

func (s *Store) allDocuments(ctx context.Context) ([]manualDocument, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongorepo: list manuals: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()
	var docs []manualDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongorepo: decode manuals: %w", err)
	}
	return docs, nil
}

// GetTool scans every manual for a tool named name.
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
	doc, ok, err := s.findOne(ctx, manualName)
	if err != nil || !ok {
		return nil, ok, err
	}
	_, manual, err := s.decode(doc)
	if err != nil {
		return nil, false, err
	}
	return manual.Tools, true, nil
}

// GetManual returns the named manual.
func (s *Store) GetManual(ctx context.Context, name string) (*utcp.Manual, bool, error) {
	doc, ok, err := s.findOne(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	_, manual, err := s.decode(doc)
	if err != nil {
		return nil, false, err
	}
	return manual, true, nil
}

// GetManuals returns every registered manual.
func (s *Store) GetManuals(ctx context.Context) ([]utcp.Manual, error) {
	docs, err := s.allDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]utcp.Manual, 0, len(docs))
	for _, doc := range docs {
		_, manual, err := s.decode(&doc)
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
	doc, ok, err := s.findOne(ctx, name)
	if err != nil || !ok {
		return nil, ok, err
	}
	tmpl, _, err := s.decode(doc)
	if err != nil {
		return nil, false, err
	}
	return tmpl, true, nil
}

// GetManualCallTemplates returns every registered manual's call template.
func (s *Store) GetManualCallTemplates(ctx context.Context) ([]utcp.CallTemplate, error) {
	docs, err := s.allDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]utcp.CallTemplate, 0, len(docs))
	for _, doc := range docs {
		tmpl, _, err := s.decode(&doc)
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	return out, nil
}

var _ utcp.ConcurrentToolRepository = (*Store)(nil)
