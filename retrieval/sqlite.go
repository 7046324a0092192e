package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is a file-backed Store persisting documents in a SQLite
// database. Matching uses LIKE per query token with token-overlap ranking,
// so a pre-built knowledge base file can be shared across runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// document schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening knowledge database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		id      TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		topic   TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing knowledge schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Add inserts a document, generating an ID when missing.
func (s *SQLiteStore) Add(ctx context.Context, doc Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	topic := doc.Metadata["topic"]

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, content, topic) VALUES (?, ?, ?)`,
		doc.ID, doc.Content, topic,
	); err != nil {
		return "", fmt.Errorf("inserting document: %w", err)
	}

	return doc.ID, nil
}

// Search matches documents containing any query token, ranked by how many
// tokens they contain.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return []Document{}, nil
	}

	var (
		conds []string
		score []string
		args  []any
	)

	// Placeholders bind in query order: score terms first, then conditions.
	for range tokens {
		score = append(score, "(instr(lower(content), ?) > 0)")
		conds = append(conds, "instr(lower(content), ?) > 0")
	}
	for _, t := range tokens {
		args = append(args, t)
	}
	for _, t := range tokens {
		args = append(args, t)
	}
	args = append(args, limit)

	q := fmt.Sprintf(`SELECT id, content, topic, (%s) AS hits
		FROM documents
		WHERE %s
		ORDER BY hits DESC
		LIMIT ?`, strings.Join(score, " + "), strings.Join(conds, " OR "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var results []Document

	for rows.Next() {
		var (
			doc   Document
			topic string
			hits  int
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &topic, &hits); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}

		doc.Score = float64(hits) / float64(len(tokens))
		if topic != "" {
			doc.Metadata = map[string]string{"topic": topic}
		}

		results = append(results, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	if results == nil {
		results = []Document{}
	}

	return results, nil
}
