package sandbox

import (
	"context"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
)

// Scoped filesystem access. Every operation is checked against the
// manifest's prefix grants before it reaches the VFS; a path outside
// the granted prefixes fails with a PermissionError. Malformed paths
// skip the grant check so the VFS can report EINVAL with the proper
// operation name.

func (c *Context) checkRead(p string) error  { return c.checkFS(p, false) }
func (c *Context) checkWrite(p string) error { return c.checkFS(p, true) }

func (c *Context) checkFS(p string, write bool) error {
	if err := c.live(); err != nil {
		return err
	}
	if paths.Validate(p) != nil {
		return nil
	}
	for _, g := range c.perms.FS {
		if g.Covers(p) && (!write || g.Mode.CanWrite()) {
			return nil
		}
	}
	action := "read"
	if write {
		action = "write"
	}
	return &PermissionError{AppID: c.appID, Resource: p, Action: action}
}

// granted reports whether the app may read nodes under p
func (c *Context) granted(p string) bool {
	for _, g := range c.perms.FS {
		if g.Covers(p) {
			return true
		}
	}
	return false
}

// Mkdir creates a directory, with parents
func (c *Context) Mkdir(ctx context.Context, p string) error {
	if err := c.checkWrite(p); err != nil {
		return err
	}
	return c.fs.Mkdir(ctx, p)
}

// ReadDir lists a directory
func (c *Context) ReadDir(ctx context.Context, p string) ([]vfs.Node, error) {
	if err := c.checkRead(p); err != nil {
		return nil, err
	}
	return c.fs.ReadDir(ctx, p)
}

// Rmdir removes an empty directory
func (c *Context) Rmdir(ctx context.Context, p string) error {
	if err := c.checkWrite(p); err != nil {
		return err
	}
	return c.fs.Rmdir(ctx, p)
}

// WriteFile creates or overwrites a file
func (c *Context) WriteFile(ctx context.Context, p string, data []byte) (vfs.Node, error) {
	if err := c.checkWrite(p); err != nil {
		return vfs.Node{}, err
	}
	return c.fs.WriteFile(ctx, p, data)
}

// WriteTextFile writes a UTF-8 string
func (c *Context) WriteTextFile(ctx context.Context, p, text string) (vfs.Node, error) {
	return c.WriteFile(ctx, p, []byte(text))
}

// ReadFile returns a file's content
func (c *Context) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := c.checkRead(p); err != nil {
		return nil, err
	}
	return c.fs.ReadFile(ctx, p)
}

// ReadTextFile returns a file's content as a string
func (c *Context) ReadTextFile(ctx context.Context, p string) (string, error) {
	data, err := c.ReadFile(ctx, p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeleteFile removes a file
func (c *Context) DeleteFile(ctx context.Context, p string) error {
	if err := c.checkWrite(p); err != nil {
		return err
	}
	return c.fs.DeleteFile(ctx, p)
}

// Stat returns a node's metadata
func (c *Context) Stat(ctx context.Context, p string) (vfs.Node, error) {
	if err := c.checkRead(p); err != nil {
		return vfs.Node{}, err
	}
	return c.fs.Stat(ctx, p)
}

// Exists reports whether a path exists
func (c *Context) Exists(ctx context.Context, p string) (bool, error) {
	if err := c.checkRead(p); err != nil {
		return false, err
	}
	return c.fs.Exists(ctx, p)
}

// Rename moves a node. Both endpoints need write access.
func (c *Context) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := c.checkWrite(oldPath); err != nil {
		return err
	}
	if err := c.checkWrite(newPath); err != nil {
		return err
	}
	return c.fs.Rename(ctx, oldPath, newPath)
}

// Copy duplicates a node. The source needs read access, the
// destination write access.
func (c *Context) Copy(ctx context.Context, srcPath, dstPath string) (vfs.Node, error) {
	if err := c.checkRead(srcPath); err != nil {
		return vfs.Node{}, err
	}
	if err := c.checkWrite(dstPath); err != nil {
		return vfs.Node{}, err
	}
	return c.fs.Copy(ctx, srcPath, dstPath)
}

// Glob matches a pattern against the whole tree and returns the nodes
// the app may read
func (c *Context) Glob(ctx context.Context, pattern string) ([]vfs.Node, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	nodes, err := c.fs.Glob(ctx, pattern)
	if err != nil {
		return nil, err
	}
	visible := nodes[:0]
	for _, n := range nodes {
		if c.granted(n.Path) {
			visible = append(visible, n)
		}
	}
	return visible, nil
}

// Watch registers a change listener under a granted prefix. The
// returned ID cancels it via Unwatch; Dispose cancels it too.
func (c *Context) Watch(p string, fn vfs.WatchFunc) (string, error) {
	if err := c.checkRead(p); err != nil {
		return "", err
	}
	wrapped := func(e vfs.Event) { c.safely("watch", func() { fn(e) }) }
	cancel, err := c.fs.Watch(p, wrapped)
	if err != nil {
		return "", err
	}
	wid := id.NewWatchID().String()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		cancel()
		return "", ErrDisposed
	}
	c.watches[wid] = cancel
	c.mu.Unlock()
	return wid, nil
}

// Unwatch cancels a watch. Unknown IDs are a no-op.
func (c *Context) Unwatch(watchID string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	cancel, ok := c.watches[watchID]
	delete(c.watches, watchID)
	c.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}
