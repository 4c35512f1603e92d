package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	errx "github.com/Chative-core-poc-v1/supportbot/internal/core/error"
)

// Document is one knowledge base entry with its cached embedding.
type Document struct {
	ID        string
	Title     string
	Content   string
	Language  string
	Embedding []float64
}

// Documents returns every knowledge base document.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, content, language, embedding FROM kb_documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", errx.WrapSQL(err))
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var (
			d   Document
			emb sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Title, &d.Content, &d.Language, &emb); err != nil {
			return nil, fmt.Errorf("scan document: %w", errx.WrapSQL(err))
		}
		if emb.Valid && emb.String != "" {
			if err := json.Unmarshal([]byte(emb.String), &d.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding of %s: %w", d.ID, err)
			}
		}
		out = append(out, d)
	}
	return out, errx.WrapSQL(rows.Err())
}

// SaveEmbedding caches the embedding of a document.
func (s *Store) SaveEmbedding(ctx context.Context, id string, vec []float64) error {
	b, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE kb_documents SET embedding = ? WHERE id = ?`, string(b), id); err != nil {
		return fmt.Errorf("save embedding: %w", errx.WrapSQL(err))
	}
	return nil
}
