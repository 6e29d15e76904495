// Package filesystem reads documents from a local directory tree and
// watches it for changes with fsnotify.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
)

// Ensure Connector implements the interface.
var _ driven.Connector = (*Connector)(nil)

const connectorType = "filesystem"

// DefaultMaxFileSize skips files larger than 10 MiB.
const DefaultMaxFileSize int64 = 10 << 20

// Metadata keys set on every document read from disk.
const (
	MetaPath       = "path"
	MetaModifiedAt = "modified_at"
	MetaSize       = "size"
)

// Option configures a Connector.
type Option func(*Connector)

// WithMaxFileSize skips files larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int64) Option {
	return func(c *Connector) { c.maxSize = n }
}

// WithMIMETypes restricts the connector to files of the given types.
func WithMIMETypes(types []string) Option {
	return func(c *Connector) {
		c.allowed = make(map[string]bool, len(types))
		for _, t := range types {
			c.allowed[t] = true
		}
	}
}

// Connector reads files under rootPath. The root may also be a single file.
type Connector struct {
	rootPath string
	maxSize  int64
	allowed  map[string]bool

	// single is set once the root is known to be a file.
	single atomic.Bool

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a connector for rootPath.
func New(rootPath string, opts ...Option) *Connector {
	c := &Connector{rootPath: filepath.Clean(rootPath), maxSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Type returns "filesystem".
func (c *Connector) Type() string {
	return connectorType
}

// Root returns the cleaned root path.
func (c *Connector) Root() string {
	return c.rootPath
}

// Validate checks the root exists and is readable.
func (c *Connector) Validate(_ context.Context) error {
	info, err := c.statRoot()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		f, err := os.Open(c.rootPath)
		if err != nil {
			return fmt.Errorf("root path is not readable: %w", err)
		}
		return f.Close()
	}
	if _, err := os.ReadDir(c.rootPath); err != nil {
		return fmt.Errorf("root path is not readable: %w", err)
	}
	return nil
}

// FullSync walks the tree and emits every visible file the connector accepts.
// Unreadable files are logged and skipped; a missing root is reported on errs.
func (c *Connector) FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if _, err := c.statRoot(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if path != c.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			doc, err := c.readFile(path)
			if err != nil {
				logger.Warn("Skipping %s: %v", path, err)
				return nil
			}
			if doc == nil {
				return nil
			}
			select {
			case docs <- *doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("walking %s: %w", c.rootPath, err)
		}
	}()

	return docs, errs
}

// Watch starts an fsnotify watcher over the tree. Directories created
// later are added as they appear. The channel closes when ctx is cancelled
// or Close is called.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("connector is closed")
	}
	if c.watcher != nil {
		return nil, errors.New("connector is already watching")
	}

	info, err := os.Stat(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	c.single.Store(!info.IsDir())

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if info.IsDir() {
		err = c.addTree(w, c.rootPath)
	} else {
		err = w.Add(filepath.Dir(c.rootPath))
	}
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", c.rootPath, err)
	}
	c.watcher = w

	changes := make(chan domain.RawDocumentChange)
	go c.watchLoop(ctx, w, changes)
	return changes, nil
}

func (c *Connector) watchLoop(ctx context.Context, w *fsnotify.Watcher, changes chan<- domain.RawDocumentChange) {
	defer close(changes)
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			logger.Debug("%s: %s", change.Type, change.Document.URI)
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem watcher: %v", err)
		}
	}
}

// Close stops any active watcher.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// handleFsEvent maps one fsnotify event to a change, or nil when the
// event is irrelevant.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.RawDocumentChange {
	if !c.inScope(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return nil
		}
		if info.IsDir() {
			c.watchDir(event.Name)
			return nil
		}
		return c.changeFor(domain.ChangeCreated, event.Name)

	case event.Has(fsnotify.Write):
		return c.changeFor(domain.ChangeUpdated, event.Name)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !c.accepts(normalisers.MIMEFromPath(event.Name)) {
			return nil
		}
		return &domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{URI: event.Name},
		}
	}
	return nil
}

func (c *Connector) changeFor(changeType domain.ChangeType, path string) *domain.RawDocumentChange {
	doc, err := c.readFile(path)
	if err != nil {
		logger.Debug("Ignoring %s: %v", path, err)
		return nil
	}
	if doc == nil {
		return nil
	}
	return &domain.RawDocumentChange{Type: changeType, Document: *doc}
}

// readFile returns nil, nil for files the connector does not accept.
func (c *Connector) readFile(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}
	mimeType := normalisers.MIMEFromPath(path)
	if !c.accepts(mimeType) {
		logger.Debug("Skipping %s: unsupported type %q", path, mimeType)
		return nil, nil
	}
	if c.maxSize > 0 && info.Size() > c.maxSize {
		logger.Warn("Skipping %s: %d bytes exceeds limit of %d", path, info.Size(), c.maxSize)
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(c.baseDir(), path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return &domain.RawDocument{
		URI:      path,
		MIMEType: mimeType,
		Content:  content,
		Metadata: map[string]any{
			MetaPath:       filepath.ToSlash(rel),
			MetaModifiedAt: info.ModTime().UTC().Format(time.RFC3339),
			MetaSize:       info.Size(),
		},
	}, nil
}

func (c *Connector) accepts(mimeType string) bool {
	if len(c.allowed) == 0 {
		return mimeType != ""
	}
	return c.allowed[mimeType]
}

// inScope reports whether path is the root file, or a visible path under
// the root directory.
func (c *Connector) inScope(path string) bool {
	if c.single.Load() {
		return filepath.Clean(path) == c.rootPath
	}
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if isHidden(part) {
			return false
		}
	}
	return true
}

// baseDir is the root itself, or its parent when the root is a file.
func (c *Connector) baseDir() string {
	if c.single.Load() {
		return filepath.Dir(c.rootPath)
	}
	return c.rootPath
}

func (c *Connector) statRoot() (os.FileInfo, error) {
	info, err := os.Stat(c.rootPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("root path %s does not exist", c.rootPath)
	}
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	c.single.Store(!info.IsDir())
	return info, nil
}

func (c *Connector) watchDir(dir string) {
	c.mu.Lock()
	w := c.watcher
	c.mu.Unlock()
	if w == nil {
		return
	}
	if err := c.addTree(w, dir); err != nil {
		logger.Warn("Failed to watch %s: %v", dir, err)
	}
}

// addTree watches dir and every visible directory below it.
func (c *Connector) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// isHidden reports dot-files and dot-directories.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
