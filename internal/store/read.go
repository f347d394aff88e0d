package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ldesmirror/internal/resource"
	"github.com/roach88/ldesmirror/internal/tree"
)

// Get returns the graph stored at locator in canonical order.
// Returns resource.ErrNotFound when no resource exists.
func (s *Store) Get(ctx context.Context, locator string) (tree.Graph, error) {
	if _, err := s.Revision(ctx, locator); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_kind, subject, predicate, object_kind, object, datatype
		FROM triples
		WHERE locator = ?
		ORDER BY subject COLLATE BINARY, predicate COLLATE BINARY, object COLLATE BINARY
	`, locator)
	if err != nil {
		return nil, fmt.Errorf("query triples of %s: %w", locator, err)
	}
	defer rows.Close()

	g := tree.Graph{}
	for rows.Next() {
		t, err := scanTriple(rows)
		if err != nil {
			return nil, fmt.Errorf("scan triple of %s: %w", locator, err)
		}
		g = append(g, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate triples of %s: %w", locator, err)
	}

	return g.Normalize(), nil
}

// Revision returns the write counter of the resource at locator. It starts at
// 1 and grows with every Put or Patch.
func (s *Store) Revision(ctx context.Context, locator string) (int64, error) {
	var revision int64
	err := s.db.QueryRowContext(ctx,
		`SELECT revision FROM resources WHERE locator = ?`, locator).Scan(&revision)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("get %s: %w", locator, resource.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query resource %s: %w", locator, err)
	}
	return revision, nil
}

// Children returns the locators whose container is container, sorted.
// Returns an empty slice (not nil) when there are none.
func (s *Store) Children(ctx context.Context, container string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT locator FROM resources
		WHERE container = ?
		ORDER BY locator COLLATE BINARY ASC
	`, container)
	if err != nil {
		return nil, fmt.Errorf("query children of %s: %w", container, err)
	}
	defer rows.Close()

	children := []string{}
	for rows.Next() {
		var locator string
		if err := rows.Scan(&locator); err != nil {
			return nil, fmt.Errorf("scan child of %s: %w", container, err)
		}
		children = append(children, locator)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children of %s: %w", container, err)
	}
	return children, nil
}

// Count returns the number of stored resources.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count resources: %w", err)
	}
	return n, nil
}

func scanTriple(rows *sql.Rows) (tree.Triple, error) {
	var subjectKind, subject, predicate, objectKind, object, datatype string
	if err := rows.Scan(&subjectKind, &subject, &predicate, &objectKind, &object, &datatype); err != nil {
		return tree.Triple{}, err
	}

	sk, err := tree.ParseTermKind(subjectKind)
	if err != nil {
		return tree.Triple{}, err
	}
	ok, err := tree.ParseTermKind(objectKind)
	if err != nil {
		return tree.Triple{}, err
	}

	return tree.Triple{
		Subject:   tree.Term{Kind: sk, Value: subject},
		Predicate: predicate,
		Object:    tree.Term{Kind: ok, Value: object, Datatype: datatype},
	}, nil
}
