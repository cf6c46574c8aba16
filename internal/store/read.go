package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
)

// LoadDocument returns the named document, or ErrNotFound.
func (s *Store) LoadDocument(ctx context.Context, name string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, text, location, authentication, revision
		FROM documents
		WHERE name = ?
	`, name)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("load document %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("load document %q: %w", name, err)
	}
	return doc, nil
}

// ListDocuments returns every document ordered by name.
//
// Returns an empty slice (not nil) if no documents exist.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, text, location, authentication, revision
		FROM documents
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// History returns up to limit executions ordered by seq, oldest first.
// An empty nodeKey selects every node; limit <= 0 means no limit. When the
// log holds more than limit matching records, the most recent ones are kept.
func (s *Store) History(ctx context.Context, nodeKey string, limit int) ([]engine.Execution, error) {
	query := `
		SELECT seq, node_key, kind, location, query, status, bytes, error
		FROM (
			SELECT * FROM executions
			WHERE (? = '' OR node_key = ?)
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, query, nodeKey, nodeKey, limit)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	out := []engine.Execution{}
	for rows.Next() {
		var ex engine.Execution
		var kind string
		if err := rows.Scan(&ex.Seq, &ex.NodeKey, &kind, &ex.Location, &ex.Query, &ex.Status, &ex.Bytes, &ex.Error); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		ex.Kind = algebra.Kind(kind)
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest recorded sequence number, or 0 for an empty
// log. Pass it to engine.NewClockAt to continue numbering.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM executions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (Document, error) {
	var doc Document
	err := r.Scan(&doc.Name, &doc.Text, &doc.Connection.Location, &doc.Connection.Authentication, &doc.Revision)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}
