package store

import (
	"context"
	"fmt"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
)

// Document is a saved query.
type Document struct {
	Name       string             `json:"name"`
	Text       string             `json:"text"`
	Connection algebra.Connection `json:"connection"`
	Revision   int64              `json:"revision"`
}

// SaveDocument inserts or replaces the document with doc.Name and returns
// its new revision. The first save is revision 1.
func (s *Store) SaveDocument(ctx context.Context, doc Document) (int64, error) {
	if doc.Name == "" {
		return 0, fmt.Errorf("save document: empty name")
	}

	var revision int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (name, text, location, authentication)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			text = excluded.text,
			location = excluded.location,
			authentication = excluded.authentication,
			revision = documents.revision + 1
		RETURNING revision
	`,
		doc.Name,
		doc.Text,
		doc.Connection.Location,
		doc.Connection.Authentication,
	).Scan(&revision)
	if err != nil {
		return 0, fmt.Errorf("save document %q: %w", doc.Name, err)
	}

	return revision, nil
}

// DeleteDocument removes the named document. Returns ErrNotFound if it
// does not exist.
func (s *Store) DeleteDocument(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete document %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("delete document %q: %w", name, ErrNotFound)
	}
	return nil
}

// RecordExecution appends an execution to the log.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency - a seq already in the
// log is silently ignored.
//
// Implements engine.Recorder.
func (s *Store) RecordExecution(ctx context.Context, ex engine.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(seq, node_key, kind, location, query, status, bytes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		ex.Seq,
		ex.NodeKey,
		string(ex.Kind),
		ex.Location,
		ex.Query,
		ex.Status,
		ex.Bytes,
		ex.Error,
	)
	if err != nil {
		return fmt.Errorf("record execution %d: %w", ex.Seq, err)
	}

	return nil
}

var _ engine.Recorder = (*Store)(nil)
