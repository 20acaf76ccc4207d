package composer

import (
	"fmt"
	"strconv"
	"strings"

	"github/itish2003/docchat/models"
)

const snippetLength = 200

// BuildCitations deduplicates chunks by (document title, chunk index) keeping
// first occurrences in order, and assigns dense 1-based ids. The returned
// sources are the surviving chunks; sources[i] backs citations[i].
func BuildCitations(chunks []models.RetrievedChunk) ([]models.Citation, []models.RetrievedChunk) {
	type key struct {
		title string
		idx   int
	}
	seen := make(map[key]bool, len(chunks))
	citations := make([]models.Citation, 0, len(chunks))
	sources := make([]models.RetrievedChunk, 0, len(chunks))

	for _, c := range chunks {
		k := key{c.DocumentTitle, c.Idx}
		if seen[k] {
			continue
		}
		seen[k] = true
		sources = append(sources, c)
		citations = append(citations, models.Citation{
			ID:        len(citations) + 1,
			SourceDoc: c.DocumentTitle,
			ChunkID:   fmt.Sprintf("chunk_%d", c.Idx),
			Snippet:   snippet(c.Content),
		})
	}
	return citations, sources
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLength {
		return content
	}
	return string(runes[:snippetLength]) + "..."
}

// citeMarker is the normalized inline form of a citation reference.
func citeMarker(n int) string {
	return fmt.Sprintf(`<sup data-cite="%d">[%d]</sup>`, n, n)
}

// NormalizeCitations rewrites citation references in a generated answer in
// one left-to-right scan:
//
//   - echoed markup such as <sup ...>[n]</sup> is read as the bare group [n]
//   - a '>' directly before a group is dropped
//   - inline citation annotations such as data-source-doc="..." are removed
//   - every group [n] or [n, m, ...] becomes one marker per number in 1..count
//
// Numbers outside 1..count are dropped from their group; a group with no
// valid number is left as written.
func NormalizeCitations(answer string, count int) string {
	var b strings.Builder
	b.Grow(len(answer) + len(answer)/4)

	for i := 0; i < len(answer); {
		switch answer[i] {
		case '<':
			if nums, raw, n := parseSupGroup(answer[i:]); n > 0 {
				writeGroup(&b, nums, raw, count)
				i += n
				continue
			}
		case '>':
			if _, _, n := parseGroup(answer[i+1:]); n > 0 {
				i++
				continue
			}
		case '[':
			if nums, raw, n := parseGroup(answer[i:]); n > 0 {
				writeGroup(&b, nums, raw, count)
				i += n
				continue
			}
		case 'd':
			if i > 0 && isAttrNameByte(answer[i-1]) {
				break
			}
			if n := dataAttrLen(answer[i:]); n > 0 {
				i += n
				continue
			}
		}
		b.WriteByte(answer[i])
		i++
	}
	return b.String()
}

func writeGroup(b *strings.Builder, nums []int, raw string, count int) {
	wrote := false
	for _, n := range nums {
		if n < 1 || n > count {
			continue
		}
		b.WriteString(citeMarker(n))
		wrote = true
	}
	if !wrote {
		b.WriteString(raw)
	}
}

// parseGroup parses a bracket group "[n(, n)*]" at the start of s. It returns
// the numbers, the group text, and the number of bytes consumed (0 when s
// does not start with a group).
func parseGroup(s string) ([]int, string, int) {
	if len(s) == 0 || s[0] != '[' {
		return nil, "", 0
	}
	var nums []int
	i := 1
	for {
		i = skipSpaces(s, i)
		start := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == start || i-start > 6 {
			return nil, "", 0
		}
		n, _ := strconv.Atoi(s[start:i])
		nums = append(nums, n)
		i = skipSpaces(s, i)
		if i >= len(s) {
			return nil, "", 0
		}
		switch s[i] {
		case ',':
			i++
		case ']':
			i++
			return nums, s[:i], i
		default:
			return nil, "", 0
		}
	}
}

// parseSupGroup parses "<sup ...>" + group + "</sup>" at the start of s and
// returns the inner group.
func parseSupGroup(s string) ([]int, string, int) {
	if !strings.HasPrefix(s, "<sup") || len(s) < 5 || (s[4] != '>' && s[4] != ' ') {
		return nil, "", 0
	}
	end := strings.IndexByte(s, '>')
	if end < 0 {
		return nil, "", 0
	}
	nums, raw, n := parseGroup(s[end+1:])
	if n == 0 {
		return nil, "", 0
	}
	rest := s[end+1+n:]
	if !strings.HasPrefix(rest, "</sup>") {
		return nil, "", 0
	}
	return nums, raw, end + 1 + n + len("</sup>")
}

// citationAttrs are the annotation names a model echoes from citation
// markup. Other data-* text is ordinary prose.
var citationAttrs = map[string]bool{
	"cite":        true,
	"citation-id": true,
	"source-doc":  true,
	"chunk-id":    true,
	"snippet":     true,
}

// dataAttrLen returns the length of an inline citation annotation
// data-<name>=value at the start of s, where value is double-quoted,
// single-quoted or a bare token.
func dataAttrLen(s string) int {
	if !strings.HasPrefix(s, "data-") {
		return 0
	}
	i := len("data-")
	for i < len(s) && isAttrNameByte(s[i]) {
		i++
	}
	if i >= len(s) || s[i] != '=' || !citationAttrs[s[len("data-"):i]] {
		return 0
	}
	i++
	if i >= len(s) {
		return 0
	}
	switch q := s[i]; q {
	case '"', '\'':
		end := strings.IndexByte(s[i+1:], q)
		if end < 0 {
			return 0
		}
		return i + 1 + end + 1
	default:
		start := i
		for i < len(s) && !strings.ContainsRune("\"' \t\r\n>", rune(s[i])) {
			i++
		}
		if i == start {
			return 0
		}
		return i
	}
}

func isAttrNameByte(c byte) bool {
	return c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func skipSpaces(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return i
}
