// Package catalog indexes stored documents and the item types they use in
// an embedded DuckDB database.
package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/marcboeker/go-duckdb"
)

// Options tunes the embedded database.
type Options struct {
	Threads     int    // 0 keeps the DuckDB default
	MemoryLimit string // e.g. "256MB"; empty keeps the DuckDB default
	Log         logging.Logger
}

// Entry describes one recorded document.
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DocType    string    `json:"docType"`
	Items      int       `json:"items"`
	Connectors int       `json:"connectors"`
	Nodes      int       `json:"nodes"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Usage is one document using a given item type.
type Usage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Catalog is a DuckDB backed document index.
type Catalog struct {
	db  *sql.DB
	log logging.Logger
}

// No key constraints: Record replaces rows by delete and insert within one
// transaction.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id          VARCHAR NOT NULL,
		name        VARCHAR NOT NULL,
		doc_type    VARCHAR NOT NULL,
		items       INTEGER NOT NULL,
		connectors  INTEGER NOT NULL,
		nodes       INTEGER NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS item_usage (
		doc_id    VARCHAR NOT NULL,
		item_type VARCHAR NOT NULL,
		count     INTEGER NOT NULL
	)`,
}

// Open opens or creates the catalog at path. An empty path opens an
// in-memory catalog.
func Open(path string, opts Options) (*Catalog, error) {
	log := logging.OrDiscard(opts.Log)

	var pragmas []string
	if opts.Threads > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA threads=%d", opts.Threads))
	}
	if opts.MemoryLimit != "" {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit))
	}
	pragmas = append(pragmas, "PRAGMA enable_progress_bar=false")

	connector, err := duckdb.NewConnector(path, func(execer driver.ExecerContext) error {
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				log.Warnf("catalog pragma %q failed: %v", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create catalog schema: %w", err)
		}
	}
	log.Debugf("catalog opened at %q", path)
	return &Catalog{db: db, log: log}, nil
}

// Record indexes data under id, replacing any earlier record.
func (c *Catalog) Record(ctx context.Context, id, name string, data *document.Data) error {
	counts := make(map[string]int)
	for _, item := range data.Items {
		counts[item.Type]++
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteRows(ctx, tx, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (id, name, doc_type, items, connectors, nodes, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, data.TypeString(), len(data.Items), len(data.Connectors), len(data.Nodes), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record document %s: %w", id, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO item_usage (doc_id, item_type, count) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer stmt.Close()
	for _, itemType := range slices.Sorted(maps.Keys(counts)) {
		if _, err := stmt.ExecContext(ctx, id, itemType, counts[itemType]); err != nil {
			return fmt.Errorf("failed to record usage of %s: %w", itemType, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog record: %w", err)
	}
	c.log.Debugf("catalog recorded %s (%d item types)", id, len(counts))
	return nil
}

// Remove drops the record of id. Unknown ids are not an error.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteRows(ctx, tx, id); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteRows(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM item_usage WHERE doc_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear usage of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear record of %s: %w", id, err)
	}
	return nil
}

// List returns recorded documents, most recent first. A limit of zero or
// less returns all of them.
func (c *Catalog) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, name, doc_type, items, connectors, nodes, recorded_at
		FROM documents ORDER BY recorded_at DESC, id`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.DocType, &e.Items, &e.Connectors, &e.Nodes, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DocumentsUsing returns the documents holding at least one item of
// itemType, heaviest users first.
func (c *Catalog) DocumentsUsing(ctx context.Context, itemType string) ([]Usage, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT d.id, d.name, u.count
		 FROM item_usage u JOIN documents d ON d.id = u.doc_id
		 WHERE u.item_type = ?
		 ORDER BY u.count DESC, d.id`, itemType)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage of %s: %w", itemType, err)
	}
	defer rows.Close()

	usages := make([]Usage, 0)
	for rows.Next() {
		var u Usage
		if err := rows.Scan(&u.ID, &u.Name, &u.Count); err != nil {
			return nil, err
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
