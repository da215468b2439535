package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/advisor/internal/models"
	"github.com/xhad/advisor/internal/types"
)

var _ types.VectorIndex = (*VectorStore)(nil)

// VectorStoreConfig locates the publications table.
type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore is the Postgres/pgvector document store.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

const documentColumns = "id, supervisor, title, content, production_type, kind, published, quartile, impact, categories, source"

// NewWithConfig connects to Postgres and creates the table and indexes if missing.
func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "publications"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768 // nomic-embed-text
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to database: %v", models.ErrBackendUnavailable, err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("%w: failed to create vector extension: %v", models.ErrBackendUnavailable, err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			supervisor TEXT NOT NULL,
			title TEXT,
			content TEXT,
			production_type TEXT,
			kind TEXT,
			published DATE,
			quartile TEXT,
			impact DOUBLE PRECISION,
			categories TEXT[],
			source TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("%w: failed to create table: %v", models.ErrBackendUnavailable, err)
	}

	indexes := []string{
		fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, vs.config.TableName, vs.config.TableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_supervisor_idx ON %s (supervisor)`,
			vs.config.TableName, vs.config.TableName),
	}

	for _, stmt := range indexes {
		if _, err := vs.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: failed to create index: %v", models.ErrBackendUnavailable, err)
		}
	}

	return nil
}

// Upsert writes documents with their precomputed embeddings in one transaction.
func (vs *VectorStore) Upsert(ctx context.Context, docs []models.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents and vectors length mismatch: %d != %d", len(docs), len(vectors))
	}

	// Begin transaction
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrBackendUnavailable, err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (%s, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			supervisor = EXCLUDED.supervisor,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			production_type = EXCLUDED.production_type,
			kind = EXCLUDED.kind,
			published = EXCLUDED.published,
			quartile = EXCLUDED.quartile,
			impact = EXCLUDED.impact,
			categories = EXCLUDED.categories,
			source = EXCLUDED.source,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName, documentColumns)

	for i, doc := range docs {
		if len(vectors[i]) != vs.config.VectorDim {
			return fmt.Errorf("document %s: vector dimension %d, want %d", doc.ID, len(vectors[i]), vs.config.VectorDim)
		}

		var published *time.Time
		if doc.HasDate() {
			published = &doc.Date
		}

		_, err = tx.Exec(ctx, stmt,
			doc.ID,
			sanitizeUTF8(doc.Supervisor),
			sanitizeUTF8(doc.Title),
			sanitizeUTF8(doc.Content),
			doc.ProductionType,
			doc.Kind,
			published,
			doc.Quartile,
			doc.Impact,
			doc.Categories,
			doc.Source,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("%w: failed to insert document %s: %v", models.ErrBackendUnavailable, doc.ID, err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %v", models.ErrBackendUnavailable, err)
	}

	return nil
}

// Query returns the nearest documents by cosine distance, closest first.
func (vs *VectorStore) Query(ctx context.Context, queryEmbedding []float32, limit int, where models.NativeFilter) ([]models.Hit, error) {
	if limit <= 0 {
		return nil, nil
	}

	args := []any{pgvector.NewVector(queryEmbedding)}
	clause, args := whereClause(where, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT %s, embedding <=> $1 AS distance
		FROM %s
		%s
		ORDER BY distance
		LIMIT $%d`,
		documentColumns, vs.config.TableName, clause, len(args))

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query documents: %v", models.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var hits []models.Hit
	for rows.Next() {
		var hit models.Hit
		if err := scanDocument(rows, &hit.Document, &hit.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read documents: %v", models.ErrBackendUnavailable, err)
	}

	return hits, nil
}

// Scan returns every document matching where.
func (vs *VectorStore) Scan(ctx context.Context, where models.NativeFilter) ([]models.Document, error) {
	clause, args := whereClause(where, nil)
	query := fmt.Sprintf(`SELECT %s FROM %s %s`, documentColumns, vs.config.TableName, clause)

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan documents: %v", models.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := scanDocument(rows, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read documents: %v", models.ErrBackendUnavailable, err)
	}

	return docs, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func whereClause(where models.NativeFilter, args []any) (string, []any) {
	var conds []string
	if where.Supervisor != "" {
		args = append(args, where.Supervisor)
		conds = append(conds, fmt.Sprintf("supervisor = $%d", len(args)))
	}
	if where.ProductionType != "" {
		args = append(args, where.ProductionType)
		conds = append(conds, fmt.Sprintf("production_type = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanDocument(rows pgx.Rows, doc *models.Document, extra ...any) error {
	var (
		title, content, prodType, kind, quartile, source *string
		published                                        *time.Time
	)

	dest := []any{
		&doc.ID, &doc.Supervisor, &title, &content, &prodType, &kind,
		&published, &quartile, &doc.Impact, &doc.Categories, &source,
	}
	dest = append(dest, extra...)

	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("%w: failed to scan row: %v", models.ErrBackendUnavailable, err)
	}

	doc.Title = deref(title)
	doc.Content = deref(content)
	doc.ProductionType = deref(prodType)
	doc.Kind = deref(kind)
	doc.Quartile = deref(quartile)
	doc.Source = deref(source)
	if published != nil {
		doc.Date = *published
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
