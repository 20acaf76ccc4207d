package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github/itish2003/docchat/logger"
)

// FileIndexingService keeps a directory of documents in sync with the store.
// Documents it creates use the file path as source and the file name as title.
type FileIndexingService struct {
	ingest *IngestService
}

// NewFileIndexingService creates a new indexing service.
func NewFileIndexingService(ingest *IngestService) *FileIndexingService {
	return &FileIndexingService{ingest: ingest}
}

// IndexState holds the stored version of a file in our index.
type IndexState struct {
	Hash        string
	DocumentIDs []string
}

// WatchDirectory re-indexes files as they change until ctx is cancelled.
func (s *FileIndexingService) WatchDirectory(ctx context.Context, dirPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dirPath); err != nil {
		return fmt.Errorf("watching %s: %w", dirPath, err)
	}
	logger.Info("WATCHER: Watching directory: %s", dirPath)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("WATCHER: %v", err)
		case <-ctx.Done():
			logger.Info("WATCHER: Context cancelled, shutting down watcher.")
			return nil
		}
	}
}

func (s *FileIndexingService) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !isSupportedFile(event.Name) {
		return
	}
	logger.Debug("WATCHER: Event %s", event)

	// Editors often save through create+rename, so Create and Write are treated alike.
	switch {
	case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
		if err := s.SyncFile(ctx, event.Name); err != nil {
			logger.Error("WATCHER: Failed to index file %s: %v", event.Name, err)
		}
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		logger.Info("WATCHER: File removed/renamed: %s. Removing from index...", event.Name)
		if _, err := s.deleteDocumentsByFilepath(ctx, event.Name, nil); err != nil {
			logger.Error("WATCHER: Failed to delete records for %s: %v", event.Name, err)
		}
	}
}

// SyncFile indexes path unless the stored copy has the same content hash.
// Older versions of the file are removed first.
func (s *FileIndexingService) SyncFile(ctx context.Context, path string) error {
	state, err := s.getCurrentIndexState(ctx)
	if err != nil {
		return fmt.Errorf("reading index state: %w", err)
	}
	hash, err := calculateFileHash(path)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", path, err)
	}
	_, err = s.syncFile(ctx, path, hash, state[path])
	return err
}

func (s *FileIndexingService) syncFile(ctx context.Context, path, hash string, existing IndexState) (bool, error) {
	if existing.Hash == hash && len(existing.DocumentIDs) > 0 {
		return false, nil
	}
	if len(existing.DocumentIDs) > 0 {
		logger.Info("INDEXER: File has changed: %s. Re-indexing...", path)
		if _, err := s.deleteDocumentsByFilepath(ctx, path, existing.DocumentIDs); err != nil {
			return false, fmt.Errorf("deleting old version of %s: %w", path, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	result, err := s.ingest.ingestFile(ctx, filepath.Base(path), path, MimeTypeForPath(path), data, hash)
	if err != nil {
		return false, err
	}
	logger.Info("INDEXER: Indexed %s as document %s (%d chunks)", path, result.DocumentID, result.ChunkCount)
	return true, nil
}

// ScanResult summarises a directory scan.
type ScanResult struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
}

// ScanAndIndexDirectory syncs dirPath with the store: new and modified files
// are (re)indexed and documents whose file is gone are deleted. Individual
// file failures are logged and counted, not returned.
func (s *FileIndexingService) ScanAndIndexDirectory(ctx context.Context, dirPath string) (ScanResult, error) {
	var result ScanResult
	logger.Info("INDEXER: Starting directory scan for: %s", dirPath)

	indexedFiles, err := s.getCurrentIndexState(ctx)
	if err != nil {
		return result, fmt.Errorf("reading index state: %w", err)
	}
	logger.Debug("INDEXER: Found %d files currently in the index.", len(indexedFiles))

	localFiles := make(map[string]bool)
	err = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() || !isSupportedFile(path) {
			return nil
		}
		localFiles[path] = true

		hash, err := calculateFileHash(path)
		if err != nil {
			logger.Warn("INDEXER: Could not hash file %s: %v", path, err)
			result.Failed++
			return nil
		}
		indexed, err := s.syncFile(ctx, path, hash, indexedFiles[path])
		switch {
		case err != nil:
			logger.Error("INDEXER: Failed to process file %s: %v", path, err)
			result.Failed++
		case indexed:
			result.Indexed++
		default:
			result.Unchanged++
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("walking %s: %w", dirPath, err)
	}

	for path, state := range indexedFiles {
		if localFiles[path] || !withinDir(dirPath, path) {
			continue
		}
		logger.Info("INDEXER: File deleted: %s. Removing from index...", path)
		if _, err := s.deleteDocumentsByFilepath(ctx, path, state.DocumentIDs); err != nil {
			logger.Error("INDEXER: Failed to delete records for %s: %v", path, err)
			result.Failed++
			continue
		}
		result.Removed++
	}

	logger.Info("INDEXER: Directory scan finished: %d indexed, %d unchanged, %d removed, %d failed.",
		result.Indexed, result.Unchanged, result.Removed, result.Failed)
	return result, nil
}

// getCurrentIndexState maps each file-backed source path to its stored
// documents. Uploads and API ingests are not file paths and are skipped.
func (s *FileIndexingService) getCurrentIndexState(ctx context.Context) (map[string]IndexState, error) {
	docs, err := s.ingest.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	state := make(map[string]IndexState)
	for _, doc := range docs {
		if !filepath.IsAbs(doc.Source) && !strings.ContainsRune(doc.Source, filepath.Separator) {
			continue
		}
		entry := state[doc.Source]
		// A document without chunks is a failed ingest; leaving the hash unset forces a retry.
		if entry.Hash == "" && doc.ChunkCount > 0 {
			entry.Hash = doc.ContentHash
		}
		entry.DocumentIDs = append(entry.DocumentIDs, doc.ID)
		state[doc.Source] = entry
	}
	return state, nil
}

// deleteDocumentsByFilepath removes the documents stored for path. When ids
// is nil they are looked up first.
func (s *FileIndexingService) deleteDocumentsByFilepath(ctx context.Context, path string, ids []string) (int, error) {
	if ids == nil {
		state, err := s.getCurrentIndexState(ctx)
		if err != nil {
			return 0, err
		}
		ids = state[path].DocumentIDs
	}
	for i, id := range ids {
		if err := s.ingest.DeleteDocument(ctx, id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isSupportedFile(path string) bool {
	return MimeTypeForPath(path) != ""
}

func calculateFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
