package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Indexer stores the chunks of one document
type Indexer interface {
	ReplaceDocument(ctx context.Context, path, title string, contents []string) error
}

// Stats summarizes one ingestion run
type Stats struct {
	Documents int
	Chunks    int
	Skipped   int
}

// Loader walks a directory and indexes its text documents
type Loader struct {
	indexer  Indexer
	splitter Splitter
	logger   *zap.Logger
}

// NewLoader creates a loader
func NewLoader(indexer Indexer, splitter Splitter, logger *zap.Logger) *Loader {
	return &Loader{indexer: indexer, splitter: splitter, logger: logger}
}

var extensions = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// LoadDir indexes every .md and .txt file under root. Paths are stored
// relative to root.
func (l *Loader) LoadDir(ctx context.Context, root string) (Stats, error) {
	var stats Stats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !extensions[strings.ToLower(filepath.Ext(path))] {
			stats.Skipped++
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		text := string(data)
		chunks := l.splitter.Split(text)
		if len(chunks) == 0 {
			stats.Skipped++
			return nil
		}

		if err := l.indexer.ReplaceDocument(ctx, rel, Title(rel, text), chunks); err != nil {
			return fmt.Errorf("indexing %s: %w", rel, err)
		}

		l.logger.Debug("indexed document", zap.String("path", rel), zap.Int("chunks", len(chunks)))
		stats.Documents++
		stats.Chunks += len(chunks)
		return nil
	})
	if err != nil {
		return stats, err
	}

	l.logger.Info("ingestion finished",
		zap.Int("documents", stats.Documents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// Title is the first markdown heading of text, or the file name without extension
func Title(path, text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
