package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func collect(t *testing.T, c *Connector) ([]domain.RawDocument, []error) {
	t.Helper()
	docsChan, errsChan := c.FullSync(context.Background())
	var docs []domain.RawDocument
	for doc := range docsChan {
		docs = append(docs, doc)
	}
	var errs []error
	for err := range errsChan {
		errs = append(errs, err)
	}
	return docs, errs
}

func TestConnector_Type(t *testing.T) {
	assert.Equal(t, "filesystem", New("/tmp").Type())
}

func TestConnector_FullSync(t *testing.T) {
	t.Run("walks nested directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
		writeFile(t, filepath.Join(dir, "guides", "b.md"), "# Beta")

		docs, errs := collect(t, New(dir))

		assert.Empty(t, errs)
		require.Len(t, docs, 2)
		assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].URI)
		assert.Equal(t, "text/plain", docs[0].MIMEType)
		assert.Equal(t, "alpha", string(docs[0].Content))
		assert.Equal(t, "guides/b.md", docs[1].Metadata[MetaPath])
		assert.Equal(t, "text/markdown", docs[1].MIMEType)
		assert.EqualValues(t, 6, docs[1].Metadata[MetaSize])
		assert.NotEmpty(t, docs[1].Metadata[MetaModifiedAt])
	})

	t.Run("skips hidden files and directories", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "visible.txt"), "visible")
		writeFile(t, filepath.Join(dir, ".hidden.txt"), "hidden")
		writeFile(t, filepath.Join(dir, ".git", "config.txt"), "hidden")

		docs, _ := collect(t, New(dir))

		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].URI, "visible.txt")
	})

	t.Run("filters by MIME type", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
		writeFile(t, filepath.Join(dir, "b.md"), "beta")
		writeFile(t, filepath.Join(dir, "c.bin"), "gamma")

		docs, _ := collect(t, New(dir, WithMIMETypes([]string{"text/markdown"})))

		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].URI, "b.md")
	})

	t.Run("skips files over the size limit", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "small.txt"), "ok")
		writeFile(t, filepath.Join(dir, "large.txt"), "this one is too long")

		docs, _ := collect(t, New(dir, WithMaxFileSize(5)))

		require.Len(t, docs, 1)
		assert.Contains(t, docs[0].URI, "small.txt")
	})

	t.Run("accepts a single file root", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "only.md")
		writeFile(t, path, "# Only")
		writeFile(t, filepath.Join(dir, "other.md"), "# Other")

		docs, errs := collect(t, New(path))

		assert.Empty(t, errs)
		require.Len(t, docs, 1)
		assert.Equal(t, path, docs[0].URI)
		assert.Equal(t, "only.md", docs[0].Metadata[MetaPath])
	})

	t.Run("reports a missing root", func(t *testing.T) {
		docs, errs := collect(t, New("/non/existent/path"))

		assert.Empty(t, docs)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "does not exist")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
			writeFile(t, filepath.Join(dir, name), name)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		docsChan, errsChan := New(dir).FullSync(ctx)

		for range docsChan {
		}
		for err := range errsChan {
			assert.NoError(t, err)
		}
	})
}

func TestConnector_Validate(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, New(dir).Validate(context.Background()))

	err := New(filepath.Join(dir, "missing")).Validate(context.Background())
	assert.ErrorContains(t, err, "does not exist")
}

func waitForChange(t *testing.T, changes <-chan domain.RawDocumentChange) domain.RawDocumentChange {
	t.Helper()
	select {
	case change, ok := <-changes:
		require.True(t, ok, "changes channel closed")
		return change
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for file change event")
		return domain.RawDocumentChange{}
	}
}

func TestConnector_Watch(t *testing.T) {
	t.Run("reports created files", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir)
		defer c.Close()

		changes, err := c.Watch(context.Background())
		require.NoError(t, err)

		writeFile(t, filepath.Join(dir, "new-file.txt"), "content")

		change := waitForChange(t, changes)
		assert.Equal(t, domain.ChangeCreated, change.Type)
		assert.Contains(t, change.Document.URI, "new-file.txt")
	})

	t.Run("reports modified files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "test.txt")
		writeFile(t, path, "initial")

		c := New(dir)
		defer c.Close()
		changes, err := c.Watch(context.Background())
		require.NoError(t, err)

		writeFile(t, path, "modified")

		change := waitForChange(t, changes)
		assert.Equal(t, domain.ChangeUpdated, change.Type)
		assert.Equal(t, path, change.Document.URI)
	})

	t.Run("reports deleted files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "to-delete.txt")
		writeFile(t, path, "delete me")

		c := New(dir)
		defer c.Close()
		changes, err := c.Watch(context.Background())
		require.NoError(t, err)

		require.NoError(t, os.Remove(path))

		change := waitForChange(t, changes)
		assert.Equal(t, domain.ChangeDeleted, change.Type)
		assert.Equal(t, path, change.Document.URI)
	})

	t.Run("watches directories created later", func(t *testing.T) {
		dir := t.TempDir()
		c := New(dir)
		defer c.Close()
		changes, err := c.Watch(context.Background())
		require.NoError(t, err)

		sub := filepath.Join(dir, "sub")
		require.NoError(t, os.Mkdir(sub, 0755))
		require.Eventually(t, func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			for _, p := range c.watcher.WatchList() {
				if p == sub {
					return true
				}
			}
			return false
		}, 2*time.Second, 10*time.Millisecond)

		writeFile(t, filepath.Join(sub, "nested.txt"), "nested")

		change := waitForChange(t, changes)
		assert.Equal(t, filepath.Join(sub, "nested.txt"), change.Document.URI)
	})

	t.Run("returns error for missing root", func(t *testing.T) {
		changes, err := New("/non/existent/path").Watch(context.Background())

		assert.Nil(t, changes)
		assert.ErrorContains(t, err, "root path error")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		c := New(t.TempDir())
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())

		changes, err := c.Watch(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-changes:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("refuses to watch after close", func(t *testing.T) {
		c := New(t.TempDir())
		require.NoError(t, c.Close())

		changes, err := c.Watch(context.Background())

		assert.Nil(t, changes)
		assert.ErrorContains(t, err, "closed")
	})
}

func TestConnector_Close(t *testing.T) {
	c := New("/tmp/test")
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.Equal(t, "filesystem", c.Type())
}

func TestIsHidden(t *testing.T) {
	tests := map[string]bool{
		".hidden":   true,
		".git":      true,
		"visible":   false,
		"file.txt":  false,
		".":         false,
		"..":        false,
		"dir.d/x.y": false,
	}
	for name, want := range tests {
		assert.Equal(t, want, isHidden(name), name)
	}
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name         string
		file         string
		dir          bool
		create       bool
		op           fsnotify.Op
		wantChange   bool
		expectedType domain.ChangeType
	}{
		{name: "create file", file: "test.txt", create: true, op: fsnotify.Create, wantChange: true, expectedType: domain.ChangeCreated},
		{name: "write file", file: "test.txt", create: true, op: fsnotify.Write, wantChange: true, expectedType: domain.ChangeUpdated},
		{name: "write with chmod", file: "test.txt", create: true, op: fsnotify.Write | fsnotify.Chmod, wantChange: true, expectedType: domain.ChangeUpdated},
		{name: "remove file", file: "removed.txt", op: fsnotify.Remove, wantChange: true, expectedType: domain.ChangeDeleted},
		{name: "rename file", file: "renamed.md", op: fsnotify.Rename, wantChange: true, expectedType: domain.ChangeDeleted},
		{name: "chmod only", file: "test.txt", create: true, op: fsnotify.Chmod},
		{name: "create directory", file: "testdir", dir: true, op: fsnotify.Create},
		{name: "hidden file", file: ".hidden.txt", create: true, op: fsnotify.Create},
		{name: "file in hidden directory", file: ".git/HEAD.txt", create: true, op: fsnotify.Write},
		{name: "remove unsupported type", file: "blob.zzq", op: fsnotify.Remove},
		{name: "write unsupported type", file: "blob.zzq", create: true, op: fsnotify.Write},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, filepath.FromSlash(tt.file))
			switch {
			case tt.dir:
				require.NoError(t, os.Mkdir(path, 0755))
			case tt.create:
				writeFile(t, path, "content")
			}

			change := New(dir).handleFsEvent(fsnotify.Event{Name: path, Op: tt.op})

			if !tt.wantChange {
				assert.Nil(t, change)
				return
			}
			require.NotNil(t, change)
			assert.Equal(t, tt.expectedType, change.Type)
			assert.Equal(t, path, change.Document.URI)
			if tt.expectedType != domain.ChangeDeleted {
				assert.Equal(t, "content", string(change.Document.Content))
			}
		})
	}

	t.Run("single file root ignores siblings", func(t *testing.T) {
		dir := t.TempDir()
		root := filepath.Join(dir, "only.txt")
		writeFile(t, root, "content")
		writeFile(t, filepath.Join(dir, "sibling.txt"), "content")

		c := New(root)
		require.NoError(t, c.Validate(context.Background()))

		assert.Nil(t, c.handleFsEvent(fsnotify.Event{Name: filepath.Join(dir, "sibling.txt"), Op: fsnotify.Write}))
		assert.NotNil(t, c.handleFsEvent(fsnotify.Event{Name: root, Op: fsnotify.Write}))
	})
}
