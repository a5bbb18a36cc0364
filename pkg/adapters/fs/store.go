// Package fs implements a DocumentStore over a directory of markdown
// documents with YAML frontmatter.
package fs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/continuum/pkg/core"
)

// DefaultSystemDir holds the store's index cache. It is never listed.
const DefaultSystemDir = ".continuum"

// DefaultInclude selects the documents a store lists.
var DefaultInclude = []string{"**/*.md", "**/*.markdown"}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	MustExist bool
	// ReadOnly disables SetGoverned and the on-disk index.
	ReadOnly  bool
	SystemDir string
	// Include lists doublestar patterns, relative to Path, of the files to list.
	Include      []string
	Logger       *slog.Logger
	ErrorHandler func(error)
}

// Store implements core.DocumentStore on the filesystem.
//
// A document's ID is its path relative to the root without the extension;
// its key is the frontmatter "key" field, or the relative path with the
// extension when absent. List returns documents in lexical path order.
type Store struct {
	Path       string
	config     Config
	cache      *cache
	serializer MarkdownSerializer
	now        func() time.Time

	mu            sync.RWMutex
	watcherActive bool
	lastList      *time.Time
}

// New creates a filesystem store.
func New(config Config) *Store {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if len(config.Include) == 0 {
		config.Include = DefaultInclude
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		Path:   config.Path,
		config: config,
		cache:  newCache(config.Path, config.SystemDir),
		now:    time.Now,
	}
}

// Initialize checks (or creates) the root directory and validates the
// include patterns.
func (s *Store) Initialize(ctx context.Context) error {
	for _, p := range s.config.Include {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid include pattern %q", p)
		}
	}

	if s.config.MustExist || s.config.ReadOnly {
		info, err := os.Stat(s.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("document path does not exist: %s", s.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("document path is not a directory: %s", s.Path)
		}
		return nil
	}

	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}
	return nil
}

// List walks the root and returns every included document.
//
// Unchanged files (same mtime) are served from the index without parsing.
// Files that fail to parse are skipped and reported to the logger.
func (s *Store) List(ctx context.Context) ([]core.CanonicalDocument, error) {
	if err := s.cache.Load(); err != nil {
		s.config.Logger.Debug("index cache unreadable, starting empty", "error", err)
	}

	relPaths, err := s.walk(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]core.CanonicalDocument, 0, len(relPaths))
	seen := make(map[string]bool, len(relPaths))
	keys := make(map[string]string, len(relPaths))
	for _, relPath := range relPaths {
		if err := ctx.Err(); err != nil {
			return nil, core.Transient(ctx, err)
		}

		doc, err := s.load(relPath)
		if err != nil {
			s.config.Logger.Warn("skipping unparseable document", "path", relPath, "error", err)
			s.handleError(err)
			continue
		}
		seen[relPath] = true

		if first, dup := keys[doc.Key]; dup {
			s.config.Logger.Warn("duplicate document key, earlier path wins", "key", doc.Key, "path", relPath, "first", first)
		} else {
			keys[doc.Key] = relPath
		}
		docs = append(docs, doc)
	}

	s.cache.Prune(seen)
	if !s.config.ReadOnly {
		if err := s.cache.Save(); err != nil {
			s.config.Logger.Debug("failed to save index cache", "error", err)
		}
	}

	s.mu.Lock()
	now := s.now()
	s.lastList = &now
	s.mu.Unlock()

	return docs, nil
}

// Get returns the document with the given ID, or with the given relative path.
func (s *Store) Get(ctx context.Context, id string) (core.CanonicalDocument, error) {
	if err := ctx.Err(); err != nil {
		return core.CanonicalDocument{}, core.Transient(ctx, err)
	}

	relPath, err := s.locate(id)
	if err != nil {
		return core.CanonicalDocument{}, err
	}

	doc, err := s.load(relPath)
	if err != nil {
		return core.CanonicalDocument{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return doc, nil
}

// SetGoverned rewrites the governed flag (and updated_at) in the document's
// frontmatter, leaving the rest of the file untouched.
func (s *Store) SetGoverned(ctx context.Context, id string, governed bool) error {
	if s.config.ReadOnly {
		return fmt.Errorf("set governed on %s: %w", id, core.ErrReadOnly)
	}
	if err := ctx.Err(); err != nil {
		return core.Transient(ctx, err)
	}

	relPath, err := s.locate(id)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.Path, filepath.FromSlash(relPath))

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", id, err)
	}

	out, err := s.serializer.SetFields(data,
		field{name: FieldGoverned, value: governed},
		field{name: FieldUpdatedAt, value: s.now().UTC().Truncate(time.Second)},
	)
	if err != nil {
		return fmt.Errorf("failed to update frontmatter of %s: %w", id, err)
	}

	if err := writeFileAtomic(fullPath, out); err != nil {
		return fmt.Errorf("failed to write document %s: %w", id, err)
	}
	s.cache.Delete(relPath)

	s.config.Logger.Info("governed flag updated", "id", id, "governed", governed)
	return nil
}

// walk returns the relative paths of included files in lexical order.
func (s *Store) walk(ctx context.Context) ([]string, error) {
	var relPaths []string
	err := filepath.WalkDir(s.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != s.Path && s.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(s.Path, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if s.included(rel) {
			relPaths = append(relPaths, rel)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, core.Transient(ctx, err)
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	sort.Strings(relPaths)
	return relPaths, nil
}

// load parses one file, consulting the index first.
func (s *Store) load(relPath string) (core.CanonicalDocument, error) {
	fullPath := filepath.Join(s.Path, filepath.FromSlash(relPath))
	info, err := os.Stat(fullPath)
	if err != nil {
		return core.CanonicalDocument{}, err
	}
	mtime := info.ModTime()

	if doc, hit := s.cache.Get(relPath, mtime); hit {
		return doc, nil
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return core.CanonicalDocument{}, err
	}
	doc, err := s.serializer.Parse(data)
	if err != nil {
		return core.CanonicalDocument{}, err
	}

	doc.ID = documentID(relPath)
	if doc.Key == "" {
		doc.Key = relPath
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = mtime.UTC()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = doc.UpdatedAt
	}

	s.cache.Set(relPath, doc, mtime)
	return doc, nil
}

// locate maps an ID (or a relative path) to an existing included file.
func (s *Store) locate(id string) (string, error) {
	notFound := fmt.Errorf("%w: document %q", core.ErrNotFound, id)

	clean := path.Clean(filepath.ToSlash(id))
	if id == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", notFound
	}

	candidates := []string{clean}
	if !isDocumentExt(path.Ext(clean)) {
		candidates = []string{clean + ".md", clean + ".markdown"}
	}
	for _, c := range candidates {
		if !s.included(c) {
			continue
		}
		info, err := os.Stat(filepath.Join(s.Path, filepath.FromSlash(c)))
		if err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", notFound
}

func (s *Store) included(relPath string) bool {
	if strings.HasPrefix(path.Base(relPath), TempFilePrefix) {
		return false
	}
	for _, segment := range strings.Split(path.Dir(relPath), "/") {
		if segment != "." && s.skipDir(segment) {
			return false
		}
	}
	for _, pattern := range s.config.Include {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

func (s *Store) skipDir(name string) bool {
	return name == s.config.SystemDir || strings.HasPrefix(name, ".")
}

func (s *Store) handleError(err error) {
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}

func isDocumentExt(ext string) bool {
	return ext == ".md" || ext == ".markdown"
}

func documentID(relPath string) string {
	if ext := path.Ext(relPath); isDocumentExt(ext) {
		return strings.TrimSuffix(relPath, ext)
	}
	return relPath
}

var (
	_ core.DocumentStore     = (*Store)(nil)
	_ core.GovernanceToggler = (*Store)(nil)
	_ core.Watchable         = (*Store)(nil)
)
