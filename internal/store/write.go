package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// Put creates or replaces the resource at locator.
// The old triples are removed and g is written in one transaction.
func (s *Store) Put(ctx context.Context, locator string, g tree.Graph) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO resources (locator, container, revision)
			VALUES (?, ?, 1)
			ON CONFLICT(locator) DO UPDATE SET revision = revision + 1
		`, locator, containerOf(locator))
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM triples WHERE locator = ?`, locator); err != nil {
			return err
		}
		return insertTriples(ctx, tx, locator, g)
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", locator, err)
	}
	return nil
}

// Patch deletes del and inserts insert atomically.
// Returns resource.ErrConflict when the resource does not exist or when a
// triple in del is absent; nothing is written in that case.
func (s *Store) Patch(ctx context.Context, locator string, insert, del tree.Graph) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE resources SET revision = revision + 1 WHERE locator = ?`, locator)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return resource.ErrConflict
		}

		for _, t := range del.Normalize() {
			res, err := tx.ExecContext(ctx, `
				DELETE FROM triples
				WHERE locator = ? AND subject_kind = ? AND subject = ? AND predicate = ?
				  AND object_kind = ? AND object = ? AND datatype = ?
			`, tripleArgs(locator, t)...)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("delete %s: %w", t, resource.ErrConflict)
			}
		}

		return insertTriples(ctx, tx, locator, insert)
	})
	if err != nil {
		return fmt.Errorf("patch %s: %w", locator, err)
	}
	return nil
}

// CreateChild stores g under a new UUIDv7-named locator inside container.
func (s *Store) CreateChild(ctx context.Context, container string, g tree.Graph) (string, error) {
	locator, err := resource.ChildLocator(container)
	if err != nil {
		return "", fmt.Errorf("create child of %s: %w", container, err)
	}
	if err := s.Put(ctx, locator, g); err != nil {
		return "", err
	}
	return locator, nil
}

// insertTriples writes g under locator. Uses ON CONFLICT DO NOTHING so triples
// that are already present are silently kept.
func insertTriples(ctx context.Context, tx *sql.Tx, locator string, g tree.Graph) error {
	if len(g) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triples
		(locator, subject_kind, subject, predicate, object_kind, object, datatype)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range g.Normalize() {
		if t.Subject.Kind == tree.KindLiteral {
			return fmt.Errorf("literal subject in %s", t)
		}
		if _, err := stmt.ExecContext(ctx, tripleArgs(locator, t)...); err != nil {
			return err
		}
	}
	return nil
}

func tripleArgs(locator string, t tree.Triple) []any {
	return []any{
		locator,
		t.Subject.Kind.String(),
		t.Subject.Value,
		t.Predicate,
		t.Object.Kind.String(),
		t.Object.Value,
		t.Object.Datatype,
	}
}

// containerOf returns the locator prefix up to and including the last slash.
func containerOf(locator string) string {
	trimmed := strings.TrimSuffix(locator, "/")
	i := strings.LastIndex(trimmed, "/")
	if i < 0 {
		return ""
	}
	return trimmed[:i+1]
}

var _ resource.Store = (*Store)(nil)
