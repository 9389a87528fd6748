package store

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/systemshift/mindgraph/internal/mindgraph/core"
)

// Neo4jStore keeps notes as :Note nodes and exports inferred edges as
// :MENTIONS relationships
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewNeo4j connects to Neo4j and verifies connectivity
func NewNeo4j(ctx context.Context, cfg Neo4jConfig) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	s := &Neo4jStore{driver: driver, database: database}
	if err := s.ensureConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Close closes the Neo4j connection
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Neo4jStore) ensureConstraints(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, `CREATE CONSTRAINT note_id IF NOT EXISTS FOR (n:Note) REQUIRE n.id IS UNIQUE`, nil)
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("creating neo4j constraints: %w", err)
	}
	return nil
}

// Upsert creates or replaces a :Note node. Transient notes get the next
// value of a sequence node.
func (s *Neo4jStore) Upsert(ctx context.Context, note *core.Note) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	now := time.Now().UTC()
	if note.Created.IsZero() {
		note.Created = now
	}
	note.Updated = now

	id, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		id := int64(note.ID)
		if note.ID.Transient() {
			result, err := tx.Run(ctx, `
				MERGE (c:Sequence {name: 'note'})
				ON CREATE SET c.value = 0
				SET c.value = c.value + 1
				RETURN c.value AS id
			`, nil)
			if err != nil {
				return nil, err
			}
			record, err := result.Single(ctx)
			if err != nil {
				return nil, err
			}
			value, _ := record.Get("id")
			id, _ = value.(int64)
		}

		query := `
			MERGE (n:Note {id: $id})
			ON CREATE SET n.created = datetime($created)
			SET n.title = $title,
				n.keywords = $keywords,
				n.difficulty = $difficulty,
				n.file_path = $file_path,
				n.modified = datetime($modified)
		`
		params := map[string]any{
			"id":         id,
			"title":      note.Title,
			"keywords":   note.Keywords,
			"difficulty": int64(note.Difficulty),
			"file_path":  note.FilePath,
			"created":    note.Created.UTC().Format(time.RFC3339),
			"modified":   note.Updated.UTC().Format(time.RFC3339),
		}
		_, err := tx.Run(ctx, query, params)
		return id, err
	})
	if err != nil {
		return fmt.Errorf("upserting note: %w", err)
	}
	note.ID = core.NoteID(id.(int64))
	return nil
}

// Get retrieves a note by id
func (s *Neo4jStore) Get(ctx context.Context, id core.NoteID) (core.Note, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (n:Note {id: $id}) RETURN n`, map[string]any{"id": int64(id)})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			return nil, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
		}
		value, _ := result.Record().Get("n")
		node, ok := value.(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected value %T for note %d", value, id)
		}
		return noteFromProps(node.Props), nil
	})
	if err != nil {
		return core.Note{}, err
	}
	return result.(core.Note), nil
}

// FindAll returns every note in id order
func (s *Neo4jStore) FindAll(ctx context.Context) ([]core.Note, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `MATCH (n:Note) RETURN n ORDER BY n.id`, nil)
		if err != nil {
			return nil, err
		}

		var notes []core.Note
		for result.Next(ctx) {
			value, _ := result.Record().Get("n")
			if node, ok := value.(neo4j.Node); ok {
				notes = append(notes, noteFromProps(node.Props))
			}
		}
		return notes, result.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	notes, _ := result.([]core.Note)
	return notes, nil
}

// Delete removes a note and its relationships
func (s *Neo4jStore) Delete(ctx context.Context, id core.NoteID) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
			MATCH (n:Note {id: $id})
			DETACH DELETE n
			RETURN count(n) AS deleted
		`, map[string]any{"id": int64(id)})
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		if deleted, _ := record.Get("deleted"); deleted == int64(0) {
			return nil, fmt.Errorf("note %d: %w", id, core.ErrNotFound)
		}
		return nil, nil
	})
	return err
}

// SyncLinks replaces every :MENTIONS relationship with edges. Edges whose
// endpoints are not stored as notes are skipped.
func (s *Neo4jStore) SyncLinks(ctx context.Context, edges []core.Edge) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `MATCH (:Note)-[r:MENTIONS]->(:Note) DELETE r`, nil); err != nil {
			return nil, err
		}
		_, err := tx.Run(ctx, `
			UNWIND $edges AS e
			MATCH (a:Note {id: e.from})
			MATCH (b:Note {id: e.to})
			MERGE (a)-[:MENTIONS]->(b)
		`, map[string]any{"edges": edgeParams(edges)})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("syncing links: %w", err)
	}
	return nil
}

func edgeParams(edges []core.Edge) []map[string]any {
	out := make([]map[string]any, len(edges))
	for i, e := range edges {
		out[i] = map[string]any{"from": int64(e.From), "to": int64(e.To)}
	}
	return out
}

// noteFromProps converts node properties. Missing or mistyped properties
// are left at their zero value.
func noteFromProps(props map[string]any) core.Note {
	var note core.Note
	if v, ok := props["id"].(int64); ok {
		note.ID = core.NoteID(v)
	}
	note.Title, _ = props["title"].(string)
	note.FilePath, _ = props["file_path"].(string)
	if v, ok := props["difficulty"].(int64); ok {
		note.Difficulty = int(v)
	}
	switch kw := props["keywords"].(type) {
	case []any:
		for _, k := range kw {
			if s, ok := k.(string); ok {
				note.Keywords = append(note.Keywords, s)
			}
		}
	case []string:
		note.Keywords = append(note.Keywords, kw...)
	case string:
		note.Keywords = core.KeywordsFromCSV(kw)
	}
	note.Created, _ = props["created"].(time.Time)
	note.Updated, _ = props["modified"].(time.Time)
	return note
}
