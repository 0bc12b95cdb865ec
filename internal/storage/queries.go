package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/zheng/repograph/internal/graph"
)

// SaveGraph replaces the persisted graph with the given one inside a
// single transaction.
func (db *DB) SaveGraph(g *graph.Graph) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM edges"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM nodes"); err != nil {
		return err
	}

	nodeStmt, err := tx.Prepare(
		`INSERT INTO nodes (id, type, name, file_path, content_preview, doc, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	for _, e := range g.Entities() {
		meta := "{}"
		if len(e.Metadata) > 0 {
			raw, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", e.ID, err)
			}
			meta = string(raw)
		}
		if _, err := nodeStmt.Exec(e.ID, string(e.Type), e.Name, e.FilePath, e.ContentPreview, e.Doc, meta); err != nil {
			return fmt.Errorf("inserting node %s: %w", e.ID, err)
		}
	}

	edgeStmt, err := tx.Prepare(
		`INSERT OR IGNORE INTO edges (source_id, target_id, kind) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, r := range g.Relations() {
		if _, err := edgeStmt.Exec(r.SourceID, r.TargetID, string(r.Kind)); err != nil {
			return fmt.Errorf("inserting edge %s -> %s: %w", r.SourceID, r.TargetID, err)
		}
	}

	return tx.Commit()
}

// LoadGraph reads the persisted graph back into memory.
func (db *DB) LoadGraph() (*graph.Graph, error) {
	g := graph.New()

	rows, err := db.conn.Query(
		`SELECT id, type, name, file_path, content_preview, doc, metadata FROM nodes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		g.AddEntity(e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := db.conn.Query(`SELECT source_id, target_id, kind FROM edges`)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()

	for edgeRows.Next() {
		var r graph.Relation
		var kind string
		if err := edgeRows.Scan(&r.SourceID, &r.TargetID, &kind); err != nil {
			return nil, err
		}
		r.Kind = graph.RelationKind(kind)
		g.AddRelation(r)
	}
	return g, edgeRows.Err()
}

// FindEntitiesByPattern returns entities whose name matches a pattern (using LIKE)
// Results are sorted by match quality: exact name match > name starts with pattern > contains pattern
func (db *DB) FindEntitiesByPattern(pattern string, limit int) ([]*graph.Entity, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		`SELECT id, type, name, file_path, content_preview, doc, metadata FROM nodes
		 WHERE name LIKE ? OR id LIKE ?
		 ORDER BY
			CASE
				WHEN name = ? THEN 0
				WHEN name LIKE ? || '%' THEN 1
				ELSE 2
			END,
			length(name) ASC,
			id ASC
		 LIMIT ?`,
		"%"+pattern+"%", "%"+pattern+"%", pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntities(rows)
}

// GetEntitiesByFile returns all entities extracted from one file path.
func (db *DB) GetEntitiesByFile(filePath string) ([]*graph.Entity, error) {
	rows, err := db.conn.Query(
		`SELECT id, type, name, file_path, content_preview, doc, metadata FROM nodes
		 WHERE file_path = ? ORDER BY id`,
		filePath,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntities(rows)
}

// GetStats returns database statistics
func (db *DB) GetStats() (nodeCount, edgeCount int64, err error) {
	err = db.conn.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&nodeCount)
	if err != nil {
		return
	}
	err = db.conn.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&edgeCount)
	return
}

// TypeCounts returns the number of entities per type.
func (db *DB) TypeCounts() (map[string]int, error) {
	rows, err := db.conn.Query(`SELECT type, COUNT(*) FROM nodes GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var c int
		if err := rows.Scan(&t, &c); err != nil {
			return nil, err
		}
		counts[t] = c
	}
	return counts, rows.Err()
}

// SetMeta stores a key/value pair in the meta table
func (db *DB) SetMeta(key, value string) error {
	_, err := db.conn.Exec(
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

// GetMeta returns the value for a meta key, or "" when absent.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// Helper functions

func scanEntity(rows *sql.Rows) (*graph.Entity, error) {
	var e graph.Entity
	var typ, meta string
	if err := rows.Scan(&e.ID, &typ, &e.Name, &e.FilePath, &e.ContentPreview, &e.Doc, &meta); err != nil {
		return nil, err
	}
	e.Type = graph.EntityType(typ)
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &e.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", e.ID, err)
		}
	}
	return &e, nil
}

func scanEntities(rows *sql.Rows) ([]*graph.Entity, error) {
	var entities []*graph.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
