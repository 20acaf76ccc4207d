// Package vectorstore persists documents, chunks and one embedding per chunk
// in a relational database and ranks chunks by cosine similarity in-store.
package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github/itish2003/docchat/config"
	"github/itish2003/docchat/logger"
	"github/itish2003/docchat/models"
)

// Writer inserts a document's chunks and their embeddings. Inside InTx both
// operations share one transaction.
type Writer interface {
	InsertChunks(ctx context.Context, documentID string, contents []string) ([]string, error)
	InsertEmbeddings(ctx context.Context, vectors map[string][]float32) error
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// SQLStore is the vector store over database/sql.
type SQLStore struct {
	db         *sql.DB
	dialect    dialect
	dimensions int
}

var _ Writer = (*SQLStore)(nil)

// Open opens the store selected by cfg.Driver ("sqlite" or "postgres") and
// applies pending migrations. dimensions > 0 is enforced on every vector
// written or searched.
func Open(ctx context.Context, cfg config.StoreConfig, dimensions int) (*SQLStore, error) {
	var (
		d          dialect
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case "", "sqlite":
		registerFunctions()
		d, driverName, dsn = sqliteDialect{}, "sqlite", sqliteDSN(cfg.DSN)
	case "postgres", "postgresql":
		d, driverName, dsn = postgresDialect{}, "postgres", cfg.DSN
	default:
		return nil, fmt.Errorf("%w: unsupported store driver %q", models.ErrStore, cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", models.ErrStore, err)
	}
	if err := d.configure(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: connecting to database: %v", models.ErrStore, err)
	}

	s := &SQLStore{db: db, dialect: d, dimensions: dimensions}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %v", models.ErrStore, err)
	}
	logger.Info("STORE: Opened %s store (dimensions=%d)", d.name(), dimensions)
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Dimensions returns the enforced vector size, or 0 when unchecked.
func (s *SQLStore) Dimensions() int { return s.dimensions }

// migrate runs all pending migrations for the dialect, each in its own
// transaction together with its schema_migrations row.
func (s *SQLStore) migrate(ctx context.Context) error {
	fsys, err := s.dialect.migrations()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_documents.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		err = s.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, s.dialect.bind("INSERT INTO schema_migrations (version) VALUES (?)"), version)
			return err
		})
		if err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		logger.Debug("STORE: Applied migration %s", name)
	}
	return nil
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// InTx runs fn with a Writer bound to a single transaction. The transaction
// commits only when fn returns nil.
func (s *SQLStore) InTx(ctx context.Context, fn func(w Writer) error) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&txWriter{q: tx, store: s})
	})
	if err != nil && !isDomainError(err) {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, models.ErrStore) ||
		errors.Is(err, models.ErrVectorDimension) ||
		errors.Is(err, models.ErrInvalidInput) ||
		errors.Is(err, models.ErrNotFound)
}

// CreateDocument inserts a document row and returns its id.
func (s *SQLStore) CreateDocument(ctx context.Context, meta models.DocumentMeta) (string, error) {
	id := uuid.New().String()
	mimeType := meta.MimeType
	if mimeType == "" {
		mimeType = "text/plain"
	}
	_, err := s.db.ExecContext(ctx, s.dialect.bind(`
		INSERT INTO documents (id, title, source, mime_type, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		id, meta.Title, meta.Source, mimeType, meta.ContentHash, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("%w: creating document: %v", models.ErrStore, err)
	}
	return id, nil
}

// InsertChunks inserts contents in order as chunks of documentID. The chunk at
// position i gets idx i. Returned ids are in the same order.
func (s *SQLStore) InsertChunks(ctx context.Context, documentID string, contents []string) ([]string, error) {
	return insertChunks(ctx, s.db, s.dialect, documentID, contents)
}

// InsertEmbeddings stores one vector per chunk id.
func (s *SQLStore) InsertEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	return insertEmbeddings(ctx, s.db, s, vectors)
}

type txWriter struct {
	q     queryer
	store *SQLStore
}

func (w *txWriter) InsertChunks(ctx context.Context, documentID string, contents []string) ([]string, error) {
	return insertChunks(ctx, w.q, w.store.dialect, documentID, contents)
}

func (w *txWriter) InsertEmbeddings(ctx context.Context, vectors map[string][]float32) error {
	return insertEmbeddings(ctx, w.q, w.store, vectors)
}

func insertChunks(ctx context.Context, q queryer, d dialect, documentID string, contents []string) ([]string, error) {
	stmt, err := q.PrepareContext(ctx, d.bind(`
		INSERT INTO chunks (id, document_id, idx, content, created_at)
		VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("%w: preparing statement: %v", models.ErrStore, err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	ids := make([]string, len(contents))
	for i, content := range contents {
		ids[i] = uuid.New().String()
		if _, err := stmt.ExecContext(ctx, ids[i], documentID, i, content, now); err != nil {
			return nil, fmt.Errorf("%w: inserting chunk %d: %v", models.ErrStore, i, err)
		}
	}
	return ids, nil
}

func insertEmbeddings(ctx context.Context, q queryer, s *SQLStore, vectors map[string][]float32) error {
	stmt, err := q.PrepareContext(ctx, s.dialect.bind(`INSERT INTO embeddings (chunk_id, vector) VALUES (?, ?)`))
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %v", models.ErrStore, err)
	}
	defer stmt.Close()

	for chunkID, v := range vectors {
		if err := s.checkDimensions(v); err != nil {
			return fmt.Errorf("chunk %s: %w", chunkID, err)
		}
		arg, err := s.dialect.vectorArg(v)
		if err != nil {
			return fmt.Errorf("%w: encoding vector for chunk %s: %v", models.ErrStore, chunkID, err)
		}
		if _, err := stmt.ExecContext(ctx, chunkID, arg); err != nil {
			return fmt.Errorf("%w: inserting embedding for chunk %s: %v", models.ErrStore, chunkID, err)
		}
	}
	return nil
}

func (s *SQLStore) checkDimensions(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", models.ErrVectorDimension)
	}
	if s.dimensions > 0 && len(v) != s.dimensions {
		return fmt.Errorf("%w: got %d dimensions, want %d", models.ErrVectorDimension, len(v), s.dimensions)
	}
	return nil
}

// Search returns up to limit chunks that have an embedding, ordered by cosine
// similarity to query (descending) and then by insertion order.
func (s *SQLStore) Search(ctx context.Context, query []float32, limit int) ([]models.RetrievedChunk, error) {
	if err := s.checkDimensions(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	arg, err := s.dialect.vectorArg(query)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding query vector: %v", models.ErrStore, err)
	}

	rows, err := s.db.QueryContext(ctx, s.dialect.bind(s.dialect.searchQuery()), arg, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: searching chunks: %w", models.ErrStore, err)
	}
	defer rows.Close()

	results := make([]models.RetrievedChunk, 0, limit)
	for rows.Next() {
		var rc models.RetrievedChunk
		var createdAt dbTime
		var similarity sql.NullFloat64
		if err := rows.Scan(&rc.ID, &rc.DocumentID, &rc.Idx, &rc.Content, &createdAt,
			&rc.DocumentTitle, &rc.DocumentSource, &similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning search result: %w", models.ErrStore, err)
		}
		sim, ok := comparableSimilarity(similarity)
		if !ok {
			continue
		}
		rc.Similarity = sim
		rc.CreatedAt = createdAt.Time
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating search results: %w", models.ErrStore, err)
	}
	return results, nil
}

// comparableSimilarity rejects rows whose vectors could not be compared.
// Zero-magnitude vectors yield NULL in sqlite and NaN from pgvector; NaN
// would otherwise sort first and slip past every threshold.
func comparableSimilarity(v sql.NullFloat64) (float64, bool) {
	if !v.Valid || math.IsNaN(v.Float64) {
		return 0, false
	}
	return v.Float64, true
}

// DeleteDocument removes a document; its chunks and embeddings cascade.
func (s *SQLStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.bind("DELETE FROM documents WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("%w: deleting document: %v", models.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: deleting document: %v", models.ErrStore, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	return nil
}

// GetDocument returns a document with its chunk count.
func (s *SQLStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.bind(`
		SELECT d.id, d.title, d.source, d.mime_type, d.content_hash, d.created_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		WHERE d.id = ?
		GROUP BY d.id, d.title, d.source, d.mime_type, d.content_hash, d.created_at`), id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: document %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: scanning document: %v", models.ErrStore, err)
	}
	return doc, nil
}

// ListDocuments returns all documents, newest first, with chunk counts.
func (s *SQLStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.title, d.source, d.mime_type, d.content_hash, d.created_at, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id, d.title, d.source, d.mime_type, d.content_hash, d.created_at
		ORDER BY d.created_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %v", models.ErrStore, err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning document: %v", models.ErrStore, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %v", models.ErrStore, err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var createdAt dbTime
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Source, &doc.MimeType, &doc.ContentHash, &createdAt, &doc.ChunkCount); err != nil {
		return nil, err
	}
	doc.CreatedAt = createdAt.Time
	return &doc, nil
}

// Stats counts documents, chunks and embeddings.
func (s *SQLStore) Stats(ctx context.Context) (models.StoreStats, error) {
	var st models.StoreStats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM embeddings)`)
	if err := row.Scan(&st.Documents, &st.Chunks, &st.Embeddings); err != nil {
		return st, fmt.Errorf("%w: counting rows: %v", models.ErrStore, err)
	}
	return st, nil
}
