package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"promptloom/internal/config"
	"promptloom/internal/parser"
	"promptloom/internal/worldinfo"
)

// Store is the subset of store.Store that ingestion writes through.
type Store interface {
	EnsureSchema(ctx context.Context) error
	UpsertWorldBook(ctx context.Context, name string, enabled bool, settings worldinfo.Settings) error
	UpsertEntry(ctx context.Context, book string, e worldinfo.Entry) error
	GetEntryHashes(ctx context.Context, book string) (map[string]string, error)
	RemoveStaleEntries(ctx context.Context, book string, currentSourceFiles []string) (int64, error)
}

type Result struct {
	BooksUpserted   int
	EntriesUpserted int
	EntriesRemoved  int
	FilesSkipped    int
	Errors          []error
}

type Options struct {
	Full   bool
	Logger *zap.Logger
}

type sourceFile struct {
	path string
	root string
}

// Run synchronises each configured layer into the world book of the same name. Files
// whose content hash is unchanged are skipped unless Options.Full is set.
func Run(ctx context.Context, cfg *config.ProjectConfig, db Store, options Options) (*Result, error) {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	result := &Result{}
	for _, layer := range cfg.Layers {
		if err := db.UpsertWorldBook(ctx, layer.Name, layer.IsEnabled(), cfg.BookSettings()); err != nil {
			return nil, fmt.Errorf("upserting world book %s: %w", layer.Name, err)
		}
		result.BooksUpserted++

		var existingHashes map[string]string
		if !options.Full {
			var err error
			existingHashes, err = db.GetEntryHashes(ctx, layer.Name)
			if err != nil {
				return nil, fmt.Errorf("get entry hashes for %s: %w", layer.Name, err)
			}
		}

		files, err := walkMarkdownFiles(layer.Paths, cfg.Exclude)
		if err != nil {
			return nil, fmt.Errorf("walking files for layer %s: %w", layer.Name, err)
		}

		seenIDs := make(map[string]string)
		paths := make([]string, 0, len(files))
		for _, file := range files {
			path := file.path
			paths = append(paths, path)

			hash, err := computeHash(path)
			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("hashing %s: %w", path, err))
				continue
			}
			if !options.Full {
				if existing, ok := existingHashes[path]; ok && existing == hash {
					result.FilesSkipped++
					continue
				}
			}

			doc, err := parser.ParseFile(path)
			if err != nil {
				if errors.Is(err, parser.ErrNoFrontmatter) {
					logger.Debug("skipping file without frontmatter", zap.String("path", path))
					result.FilesSkipped++
					continue
				}
				result.Errors = append(result.Errors, fmt.Errorf("parsing %s: %w", path, err))
				continue
			}

			entry := doc.Entry
			if entry.ID == "" {
				entry.ID = entryID(file.root, path)
			}
			if other, ok := seenIDs[entry.ID]; ok {
				result.Errors = append(result.Errors, fmt.Errorf("duplicate entry id %q in %s and %s", entry.ID, other, path))
				continue
			}
			seenIDs[entry.ID] = path
			entry.SourceHash = hash

			if err := db.UpsertEntry(ctx, layer.Name, entry); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("upserting %s: %w", path, err))
				continue
			}
			logger.Debug("entry upserted", zap.String("book", layer.Name), zap.String("entry", entry.ID), zap.String("path", path))
			result.EntriesUpserted++
		}

		deleted, err := db.RemoveStaleEntries(ctx, layer.Name, paths)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("removing stale entries for %s: %w", layer.Name, err))
			continue
		}
		result.EntriesRemoved += int(deleted)
	}

	logger.Info("ingestion finished",
		zap.Int("books", result.BooksUpserted),
		zap.Int("upserted", result.EntriesUpserted),
		zap.Int("removed", result.EntriesRemoved),
		zap.Int("skipped", result.FilesSkipped),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func walkMarkdownFiles(roots []string, excludes []string) ([]sourceFile, error) {
	excluded := cleanExcludes(excludes)

	var files []sourceFile
	for _, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && isExcluded(path, excluded) {
				return filepath.SkipDir
			}
			if d.IsDir() {
				return nil
			}
			if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
				return nil
			}
			if isExcluded(path, excluded) {
				return nil
			}
			files = append(files, sourceFile{path: path, root: root})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func cleanExcludes(excludes []string) []string {
	cleaned := make([]string, 0, len(excludes))
	for _, path := range excludes {
		if path == "" {
			continue
		}
		cleaned = append(cleaned, filepath.Clean(path))
	}
	return cleaned
}

// isExcluded matches a path against exclude entries, which are either path prefixes or
// glob patterns applied to the base name.
func isExcluded(path string, excludes []string) bool {
	clean := filepath.Clean(path)
	base := filepath.Base(clean)
	for _, exclude := range excludes {
		if exclude == clean || strings.HasPrefix(clean, exclude+string(os.PathSeparator)) {
			return true
		}
		if ok, _ := filepath.Match(exclude, base); ok {
			return true
		}
	}
	return false
}

// entryID derives a stable id from the file's path below its layer root.
func entryID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ToLower(filepath.ToSlash(rel))
}

func computeHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
