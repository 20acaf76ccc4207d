package vectorstore

import (
	"database/sql"
	"io/fs"
	"strconv"
	"strings"
)

// dialect isolates the SQL that differs between backends.
type dialect interface {
	name() string
	// bind turns a query written with ? placeholders into the driver's form.
	bind(query string) string
	// vectorArg converts a vector into a driver argument for the vector column.
	vectorArg(v []float32) (any, error)
	// searchQuery selects chunk, document and similarity columns for one
	// query vector argument and one limit argument.
	searchQuery() string
	migrations() (fs.FS, error)
	configure(db *sql.DB) error
}

// bindDollar rewrites ? placeholders to $1, $2, ...
func bindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
