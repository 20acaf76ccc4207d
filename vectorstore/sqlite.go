package vectorstore

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"sync"

	sqlite "modernc.org/sqlite"

	"github/itish2003/docchat/vectorstore/migrations"
)

// cosineDistanceFunc is the scalar function the sqlite dialect uses to rank
// stored vectors against a query vector.
const cosineDistanceFunc = "vec_cosine_distance"

var registerOnce sync.Once

// registerFunctions makes vec_cosine_distance available on connections opened
// after the call. Existing connections do not see it.
func registerFunctions() {
	registerOnce.Do(func() {
		_ = sqlite.RegisterDeterministicScalarFunction(cosineDistanceFunc, 2, cosineDistanceImpl)
	})
}

func cosineDistanceImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%s: expected 2 arguments, got %d", cosineDistanceFunc, len(args))
	}
	a, err := blobArg(args[0])
	if err != nil {
		return nil, err
	}
	b, err := blobArg(args[1])
	if err != nil {
		return nil, err
	}
	d, ok := cosineDistance(a, b)
	if !ok {
		return nil, nil
	}
	return d, nil
}

func blobArg(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeVector(v)
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T; want BLOB", cosineDistanceFunc, arg)
	}
}

// cosineDistance returns 1 - cos(a, b). It reports false when the vectors are
// empty, differ in length, or either has zero magnitude.
func cosineDistance(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na2, nb2 float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(na2)*math.Sqrt(nb2)), true
}

// encodeVector stores a vector as little-endian IEEE 754 float32 values with
// no length prefix.
func encodeVector(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	return b
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d (not multiple of 4)", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }

func (sqliteDialect) bind(query string) string { return query }

func (sqliteDialect) vectorArg(v []float32) (any, error) { return encodeVector(v), nil }

func (sqliteDialect) searchQuery() string {
	return `
		SELECT c.id, c.document_id, c.idx, c.content, c.created_at, d.title, d.source,
		       1 - ` + cosineDistanceFunc + `(e.vector, ?) AS similarity
		FROM chunks c
		JOIN embeddings e ON e.chunk_id = c.id
		JOIN documents d ON d.id = c.document_id
		ORDER BY similarity DESC, c.rowid ASC
		LIMIT ?`
}

func (sqliteDialect) migrations() (fs.FS, error) { return fs.Sub(migrations.FS, "sqlite") }

func (sqliteDialect) configure(db *sql.DB) error {
	// A single connection keeps :memory: databases shared and serialises writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	return nil
}

// sqliteDSN adds the pragmas every connection needs.
func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "docchat.db"
	}
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
