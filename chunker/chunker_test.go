package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docchat/config"
)

func TestNewBoundary(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		b := NewBoundary()
		assert.Equal(t, DefaultChunkSize, b.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, b.Overlap())
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		b := NewBoundary(WithChunkSize(100), WithOverlap(150))
		assert.Equal(t, 25, b.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		b := NewBoundary(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, b.ChunkSize())
		assert.Equal(t, DefaultChunkOverlap, b.Overlap())
	})
}

func TestBoundary_Split_SentenceBoundary(t *testing.T) {
	chunks, err := NewBoundary(WithChunkSize(15), WithOverlap(3)).Split("Sentence one. Sentence two.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sentence one.", "Sentence two."}, chunks)
}

func TestBoundary_Split_EarlyBoundaryFallsBackToOverlap(t *testing.T) {
	chunks, err := NewBoundary(WithChunkSize(4), WithOverlap(1)).Split("A. B. C.")
	require.NoError(t, err)
	assert.Equal(t, []string{"A. B", "B. C", "C."}, chunks)
}

func TestBoundary_Split_ShortInput(t *testing.T) {
	chunks, err := NewBoundary().Split("   The sky is blue.\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"The sky is blue."}, chunks)
}

func TestBoundary_Split_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t\n"} {
		chunks, err := NewBoundary().Split(in)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestBoundary_Split_WhitespaceRunsDropped(t *testing.T) {
	text := "alpha" + strings.Repeat(" ", 40) + "omega"
	chunks, err := NewBoundary(WithChunkSize(10), WithOverlap(2)).Split(text)
	require.NoError(t, err)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
	assert.Equal(t, "alpha", chunks[0])
	assert.Equal(t, "omega", chunks[len(chunks)-1])
}

func TestBoundary_Split_Properties(t *testing.T) {
	inputs := map[string]string{
		"prose": strings.Repeat("Retrieval grounds answers in documents. Does it help? Yes!\n", 40),
		"no terminators": strings.Repeat("lorem ipsum dolor sit amet ", 120),
		"unicode": strings.Repeat("Ünïcödé tëxt wïth äccents ünd ümlauts. ", 60),
		"single long word": strings.Repeat("x", 3000),
	}
	sizes := []struct{ size, overlap int }{{800, 150}, {100, 20}, {37, 5}}

	for name, text := range inputs {
		for _, sz := range sizes {
			t.Run(name, func(t *testing.T) {
				chunks, err := NewBoundary(WithChunkSize(sz.size), WithOverlap(sz.overlap)).Split(text)
				require.NoError(t, err)
				require.NotEmpty(t, chunks)

				offset := -1
				for i, c := range chunks {
					assert.NotEmpty(t, strings.TrimSpace(c), "chunk %d is blank", i)
					assert.LessOrEqual(t, utf8.RuneCountInString(c), sz.size, "chunk %d too long", i)

					// Each chunk must start later in the source than the one before it.
					pos := strings.Index(text[offset+1:], c)
					require.GreaterOrEqual(t, pos, 0, "chunk %d not found after offset %d", i, offset)
					offset = offset + 1 + pos
				}
			})
		}
	}
}

func TestRecursive_Split(t *testing.T) {
	text := strings.Repeat("First paragraph sentence here.\n\n", 30)
	chunks, err := NewRecursive(WithChunkSize(120), WithOverlap(10)).Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}

func TestNew_Strategy(t *testing.T) {
	tests := []struct {
		strategy string
		want     any
		wantErr  bool
	}{
		{"", &Boundary{}, false},
		{StrategyBoundary, &Boundary{}, false},
		{StrategyRecursive, &Recursive{}, false},
		{"semantic", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			s, err := New(config.ChunkerConfig{Strategy: tt.strategy, Size: 200, Overlap: 20})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}
