package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/docchat/models"
)

// newEmbeddingServer answers /embed with a fixed 3-dimensional vector per
// text: texts mentioning the sky share one direction, all others another.
func newEmbeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req models.EmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := models.EmbedResponse{Embeddings: make([][]float32, len(req.Texts))}
		for i, text := range req.Texts {
			if strings.Contains(strings.ToLower(text), "sky") {
				resp.Embeddings[i] = []float32{1, 0, 0}
			} else {
				resp.Embeddings[i] = []float32{0, 1, 0}
			}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeTestConfig(t *testing.T, embeddingURL string) string {
	t.Helper()
	for _, key := range []string{"EMBEDDING_API_URL", "EMBEDDING_DIMENSIONS", "GEMINI_API_KEY", "DATABASE_DRIVER", "DATABASE_URL", "INDEX_PATH"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	cfg := fmt.Sprintf(`embedding:
  url: %s
  dimensions: 3
  timeout_secs: 5
store:
  driver: sqlite
  dsn: %s
retrieval:
  min_content_length: 20
`, embeddingURL, filepath.Join(dir, "cli.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func resetFlags() {
	configPath, verbose = "", false
	ingestDir, ingestText, ingestTitle, ingestSource = "", "", "", "cli"
	queryDebug = false
	servePort = ""
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags()
	}()
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "ingest")
	assert.Contains(t, names, "query")
	assert.Contains(t, names, "documents")
}

func TestQueryCmd_RequiresQuestion(t *testing.T) {
	_, err := runCLI(t, "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestDocumentsDeleteCmd_RequiresID(t *testing.T) {
	_, err := runCLI(t, "documents", "delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestIngestCmd_NothingToIngest(t *testing.T) {
	cfgPath := writeTestConfig(t, "http://127.0.0.1:1")
	_, err := runCLI(t, "--config", cfgPath, "ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to ingest")
}

func TestIngestQueryAndDocuments(t *testing.T) {
	cfgPath := writeTestConfig(t, newEmbeddingServer(t).URL)

	out, err := runCLI(t, "--config", cfgPath, "ingest",
		"--text", "The sky is blue because of Rayleigh scattering.", "--title", "doc1")
	require.NoError(t, err)
	assert.Contains(t, out, `Ingested "doc1"`)

	notes := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(notes, []byte("# Cats\nThe cat sat on the mat."), 0o644))
	out, err = runCLI(t, "--config", cfgPath, "ingest", notes)
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested "+notes)

	out, err = runCLI(t, "--config", cfgPath, "documents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Title:   doc1")
	assert.Contains(t, out, "Source:  "+notes)
	assert.Contains(t, out, "Total: 2 documents")

	// No Gemini key is configured, so the answer comes from the fallback.
	out, err = runCLI(t, "--config", cfgPath, "query", "why", "is", "the", "sky", "blue")
	require.NoError(t, err)
	assert.Contains(t, out, `You're asking about: **"why is the sky blue"**`)

	out, err = runCLI(t, "--config", cfgPath, "query", "--debug", "why is the sky blue")
	require.NoError(t, err)
	var diag models.RetrievalDiagnostics
	require.NoError(t, json.Unmarshal([]byte(out), &diag))
	assert.Equal(t, "why is the sky blue", diag.Question)
	require.NotEmpty(t, diag.Candidates)
	assert.Equal(t, "doc1", diag.Candidates[0].DocumentTitle)
	assert.True(t, diag.Candidates[0].Selected)
}

func TestDocumentsDelete_NotFound(t *testing.T) {
	cfgPath := writeTestConfig(t, newEmbeddingServer(t).URL)
	_, err := runCLI(t, "--config", cfgPath, "documents", "delete", "missing-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
