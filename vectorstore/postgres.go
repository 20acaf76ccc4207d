package vectorstore

import (
	"database/sql"
	"io/fs"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pgvector/pgvector-go"

	"github/itish2003/docchat/vectorstore/migrations"
)

// postgresDialect stores vectors in a pgvector column and ranks them with the
// <=> cosine distance operator.
type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

func (postgresDialect) bind(query string) string { return bindDollar(query) }

func (postgresDialect) vectorArg(v []float32) (any, error) { return pgvector.NewVector(v), nil }

func (postgresDialect) searchQuery() string {
	return `
		SELECT c.id, c.document_id, c.idx, c.content, c.created_at, d.title, d.source,
		       1 - (e.vector <=> ?::vector) AS similarity
		FROM chunks c
		JOIN embeddings e ON e.chunk_id = c.id
		JOIN documents d ON d.id = c.document_id
		ORDER BY similarity DESC, c.seq ASC
		LIMIT ?`
}

func (postgresDialect) migrations() (fs.FS, error) { return fs.Sub(migrations.FS, "postgres") }

func (postgresDialect) configure(db *sql.DB) error { return nil }
