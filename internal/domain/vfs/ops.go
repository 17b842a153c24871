package vfs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
)

// Mkdir creates a directory, including missing ancestors. Creating an
// existing directory is a no-op; a file in the way fails with ErrExist
// (the target) or ErrNotDir (an ancestor).
func (v *VFS) Mkdir(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() { v.record("mkdir", start, err) }()

	if paths.Validate(p) != nil {
		return errInvalid("mkdir", p)
	}

	v.mu.Lock()
	created, err := v.mkdirLocked("mkdir", p, time.Now())
	if err != nil {
		v.mu.Unlock()
		return err
	}
	if len(created) == 0 {
		v.mu.Unlock()
		return nil
	}

	muts := make([]mutation, 0, len(created))
	events := make([]Event, 0, len(created))
	for _, n := range created {
		muts = append(muts, v.nodeMutation(n))
		events = append(events, Event{Kind: EventCreate, Path: n.Path, Node: *n})
	}
	v.flusher.enqueue(muts...)
	count := len(v.nodes)
	v.mu.Unlock()

	v.setNodeGauge(count)
	v.dispatch(events)
	return nil
}

// mkdirLocked ensures p and its ancestors exist as directories,
// returning the nodes it created in path order. Callers hold mu.
func (v *VFS) mkdirLocked(op, p string, now time.Time) ([]*Node, error) {
	if existing, ok := v.nodes[p]; ok {
		if existing.IsDir() {
			return nil, nil
		}
		return nil, errExist(op, p)
	}

	var created []*Node
	cur := paths.Root
	parent := v.nodes[paths.Root]
	for _, name := range paths.Split(p) {
		cur = paths.Join(cur, name)
		if existing, ok := v.nodes[cur]; ok {
			if !existing.IsDir() {
				return nil, errNotDir(op, cur)
			}
			parent = existing
			continue
		}
		n := &Node{
			ID:        id.NewNodeID().String(),
			Type:      NodeDir,
			Name:      name,
			ParentID:  parent.ID,
			Path:      cur,
			CreatedAt: now,
			UpdatedAt: now,
		}
		v.nodes[cur] = n
		v.childSet(paths.Parent(cur))[name] = struct{}{}
		created = append(created, n)
		parent = n
	}
	return created, nil
}

// ReadDir lists a directory's children sorted by name
func (v *VFS) ReadDir(ctx context.Context, p string) (_ []Node, err error) {
	start := time.Now()
	defer func() { v.record("readdir", start, err) }()

	if paths.Validate(p) != nil {
		return nil, errInvalid("readdir", p)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	n, ok := v.nodes[p]
	if !ok {
		return nil, errNotExist("readdir", p)
	}
	if !n.IsDir() {
		return nil, errNotDir("readdir", p)
	}

	names := make([]string, 0, len(v.children[p]))
	for name := range v.children[p] {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Node, 0, len(names))
	for _, name := range names {
		if child, ok := v.nodes[paths.Join(p, name)]; ok {
			out = append(out, *child)
		}
	}
	return out, nil
}

// Rmdir removes an empty directory
func (v *VFS) Rmdir(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() { v.record("rmdir", start, err) }()

	if paths.Validate(p) != nil || p == paths.Root {
		return errInvalid("rmdir", p)
	}

	v.mu.Lock()
	n, ok := v.nodes[p]
	if !ok {
		v.mu.Unlock()
		return errNotExist("rmdir", p)
	}
	if !n.IsDir() {
		v.mu.Unlock()
		return errNotDir("rmdir", p)
	}
	if len(v.children[p]) > 0 {
		v.mu.Unlock()
		return errNotEmpty("rmdir", p)
	}

	delete(v.nodes, p)
	delete(v.children, p)
	if set, ok := v.children[paths.Parent(p)]; ok {
		delete(set, n.Name)
	}
	v.flusher.enqueue(deleteMutation(storeNodes, p))
	snapshot := *n
	count := len(v.nodes)
	v.mu.Unlock()

	v.setNodeGauge(count)
	v.dispatch([]Event{{Kind: EventDelete, Path: p, Node: snapshot}})
	return nil
}

// WriteFile writes data to a file, creating it and any missing
// ancestor directories. Overwriting updates the file in place: its
// node ID and content ID survive.
func (v *VFS) WriteFile(ctx context.Context, p string, data []byte) (_ Node, err error) {
	start := time.Now()
	defer func() { v.record("write", start, err) }()

	if paths.Validate(p) != nil {
		return Node{}, errInvalid("write", p)
	}
	if p == paths.Root {
		return Node{}, errIsDir("write", p)
	}

	now := time.Now()
	buf := make([]byte, len(data))
	copy(buf, data)
	mime := mimetype.Detect(buf).String()

	v.mu.Lock()
	if existing, ok := v.nodes[p]; ok {
		if existing.IsDir() {
			v.mu.Unlock()
			return Node{}, errIsDir("write", p)
		}
		existing.Size = int64(len(buf))
		existing.MimeType = mime
		existing.UpdatedAt = now
		v.contents[existing.ContentID] = buf
		v.flusher.enqueue(
			v.nodeMutation(existing),
			v.contentMutation(existing.ContentID, buf),
		)
		snapshot := *existing
		v.mu.Unlock()

		v.dispatch([]Event{{Kind: EventUpdate, Path: p, Node: snapshot}})
		return snapshot, nil
	}

	parent := paths.Parent(p)
	if pn, ok := v.nodes[parent]; ok && !pn.IsDir() {
		v.mu.Unlock()
		return Node{}, errNotDir("write", parent)
	}
	created, derr := v.mkdirLocked("write", parent, now)
	if derr != nil {
		v.mu.Unlock()
		return Node{}, derr
	}

	n := &Node{
		ID:        id.NewNodeID().String(),
		Type:      NodeFile,
		Name:      paths.Base(p),
		ParentID:  v.nodes[parent].ID,
		Path:      p,
		Size:      int64(len(buf)),
		ContentID: uuid.NewString(),
		MimeType:  mime,
		CreatedAt: now,
		UpdatedAt: now,
	}
	v.nodes[p] = n
	v.childSet(parent)[n.Name] = struct{}{}
	v.contents[n.ContentID] = buf

	muts := make([]mutation, 0, len(created)+2)
	events := make([]Event, 0, len(created)+1)
	for _, d := range created {
		muts = append(muts, v.nodeMutation(d))
		events = append(events, Event{Kind: EventCreate, Path: d.Path, Node: *d})
	}
	muts = append(muts, v.nodeMutation(n), v.contentMutation(n.ContentID, buf))
	events = append(events, Event{Kind: EventCreate, Path: p, Node: *n})
	v.flusher.enqueue(muts...)
	snapshot := *n
	count := len(v.nodes)
	v.mu.Unlock()

	v.setNodeGauge(count)
	v.dispatch(events)
	return snapshot, nil
}

// WriteTextFile writes a string to a file
func (v *VFS) WriteTextFile(ctx context.Context, p, text string) (Node, error) {
	return v.WriteFile(ctx, p, []byte(text))
}

// ReadFile returns a file's content. Cached blobs are served from
// memory; cold blobs are loaded from the store and cached.
func (v *VFS) ReadFile(ctx context.Context, p string) (_ []byte, err error) {
	start := time.Now()
	defer func() { v.record("read", start, err) }()

	if paths.Validate(p) != nil {
		return nil, errInvalid("read", p)
	}

	v.mu.RLock()
	n, ok := v.nodes[p]
	if !ok {
		v.mu.RUnlock()
		return nil, errNotExist("read", p)
	}
	if n.IsDir() {
		v.mu.RUnlock()
		return nil, errIsDir("read", p)
	}
	cid := n.ContentID
	if raw, ok := v.contents[cid]; ok {
		out := make([]byte, len(raw))
		copy(out, raw)
		v.mu.RUnlock()
		return out, nil
	}
	v.mu.RUnlock()

	value, found, gerr := v.db.Get(ctx, storeContents, cid)
	if gerr != nil {
		return nil, fmt.Errorf("read %s: %w", p, gerr)
	}
	if !found {
		return nil, errNotExist("read", p)
	}
	raw, derr := v.decoder.DecodeAll(value, nil)
	if derr != nil {
		return nil, fmt.Errorf("read %s: decompress: %w", p, derr)
	}

	// Cache the decoded blob unless the file changed underneath us.
	v.mu.Lock()
	if cur, ok := v.nodes[p]; ok && cur.ContentID == cid {
		if _, cached := v.contents[cid]; !cached {
			v.contents[cid] = raw
		}
	}
	v.mu.Unlock()

	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// ReadTextFile returns a file's content as a string
func (v *VFS) ReadTextFile(ctx context.Context, p string) (string, error) {
	data, err := v.ReadFile(ctx, p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DeleteFile removes a file and frees its content blob
func (v *VFS) DeleteFile(ctx context.Context, p string) (err error) {
	start := time.Now()
	defer func() { v.record("delete", start, err) }()

	if paths.Validate(p) != nil {
		return errInvalid("delete", p)
	}
	if p == paths.Root {
		return errIsDir("delete", p)
	}

	v.mu.Lock()
	n, ok := v.nodes[p]
	if !ok {
		v.mu.Unlock()
		return errNotExist("delete", p)
	}
	if n.IsDir() {
		v.mu.Unlock()
		return errIsDir("delete", p)
	}

	delete(v.nodes, p)
	if set, ok := v.children[paths.Parent(p)]; ok {
		delete(set, n.Name)
	}
	delete(v.contents, n.ContentID)
	v.flusher.enqueue(
		deleteMutation(storeNodes, p),
		deleteMutation(storeContents, n.ContentID),
	)
	snapshot := *n
	count := len(v.nodes)
	v.mu.Unlock()

	v.setNodeGauge(count)
	v.dispatch([]Event{{Kind: EventDelete, Path: p, Node: snapshot}})
	return nil
}

// Stat returns a node's metadata
func (v *VFS) Stat(ctx context.Context, p string) (_ Node, err error) {
	start := time.Now()
	defer func() { v.record("stat", start, err) }()

	if paths.Validate(p) != nil {
		return Node{}, errInvalid("stat", p)
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	n, ok := v.nodes[p]
	if !ok {
		return Node{}, errNotExist("stat", p)
	}
	return *n, nil
}

// Exists reports whether a path names a node
func (v *VFS) Exists(ctx context.Context, p string) (bool, error) {
	if paths.Validate(p) != nil {
		return false, errInvalid("exists", p)
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.nodes[p]
	return ok, nil
}

// Rename moves a node. Renaming a directory rewrites every
// descendant's path under one lock hold, so no intermediate state is
// ever observable. The target must not exist.
func (v *VFS) Rename(ctx context.Context, oldPath, newPath string) (err error) {
	start := time.Now()
	defer func() { v.record("rename", start, err) }()

	if paths.Validate(oldPath) != nil {
		return errInvalid("rename", oldPath)
	}
	if paths.Validate(newPath) != nil {
		return errInvalid("rename", newPath)
	}
	if oldPath == paths.Root {
		return errInvalid("rename", oldPath)
	}

	v.mu.Lock()
	src, ok := v.nodes[oldPath]
	if !ok {
		v.mu.Unlock()
		return errNotExist("rename", oldPath)
	}
	if oldPath == newPath {
		v.mu.Unlock()
		return nil
	}
	if _, exists := v.nodes[newPath]; exists {
		v.mu.Unlock()
		return errExist("rename", newPath)
	}
	if src.IsDir() && paths.Within(oldPath, newPath) {
		v.mu.Unlock()
		return errInvalid("rename", newPath)
	}
	newParent := paths.Parent(newPath)
	pn, ok := v.nodes[newParent]
	if !ok {
		v.mu.Unlock()
		return errNotExist("rename", newParent)
	}
	if !pn.IsDir() {
		v.mu.Unlock()
		return errNotDir("rename", newParent)
	}

	// Gather the subtree through the child index before mutating it.
	subtree := []string{oldPath}
	for i := 0; i < len(subtree); i++ {
		for name := range v.children[subtree[i]] {
			subtree = append(subtree, paths.Join(subtree[i], name))
		}
	}

	now := time.Now()
	if set, ok := v.children[paths.Parent(oldPath)]; ok {
		delete(set, src.Name)
	}
	v.childSet(newParent)[paths.Base(newPath)] = struct{}{}
	src.Name = paths.Base(newPath)
	src.ParentID = pn.ID
	src.UpdatedAt = now

	muts := make([]mutation, 0, len(subtree)*2)
	for _, sp := range subtree {
		n := v.nodes[sp]
		np := paths.Rebase(sp, oldPath, newPath)
		delete(v.nodes, sp)
		n.Path = np
		v.nodes[np] = n
		if set, ok := v.children[sp]; ok {
			delete(v.children, sp)
			v.children[np] = set
		}
		muts = append(muts, deleteMutation(storeNodes, sp), v.nodeMutation(n))
	}
	v.flusher.enqueue(muts...)
	snapshot := *src
	v.mu.Unlock()

	v.dispatch([]Event{{Kind: EventRename, Path: newPath, OldPath: oldPath, Node: snapshot}})
	return nil
}

// Copy duplicates a file or a directory subtree. Every copied node
// gets a fresh identity: new node IDs and, for files, new content IDs.
func (v *VFS) Copy(ctx context.Context, srcPath, dstPath string) (_ Node, err error) {
	start := time.Now()
	defer func() { v.record("copy", start, err) }()

	if paths.Validate(srcPath) != nil || srcPath == paths.Root {
		return Node{}, errInvalid("copy", srcPath)
	}
	if paths.Validate(dstPath) != nil {
		return Node{}, errInvalid("copy", dstPath)
	}

	v.mu.Lock()
	src, ok := v.nodes[srcPath]
	if !ok {
		v.mu.Unlock()
		return Node{}, errNotExist("copy", srcPath)
	}
	if _, exists := v.nodes[dstPath]; exists {
		v.mu.Unlock()
		return Node{}, errExist("copy", dstPath)
	}
	if src.IsDir() && paths.Within(srcPath, dstPath) {
		v.mu.Unlock()
		return Node{}, errInvalid("copy", dstPath)
	}
	dstParent := paths.Parent(dstPath)
	pn, ok := v.nodes[dstParent]
	if !ok {
		v.mu.Unlock()
		return Node{}, errNotExist("copy", dstParent)
	}
	if !pn.IsDir() {
		v.mu.Unlock()
		return Node{}, errNotDir("copy", dstParent)
	}

	// Stage the whole copy first so a cold content read failing
	// partway leaves nothing behind.
	type staged struct {
		node *Node
		data []byte
	}
	type pair struct{ src, dst string }

	now := time.Now()
	queue := []pair{{srcPath, dstPath}}
	plan := make([]staged, 0, 8)
	parentIDs := map[string]string{dstParent: pn.ID}

	for i := 0; i < len(queue); i++ {
		sp, dp := queue[i].src, queue[i].dst
		sn := v.nodes[sp]
		n := &Node{
			ID:        id.NewNodeID().String(),
			Type:      sn.Type,
			Name:      paths.Base(dp),
			ParentID:  parentIDs[paths.Parent(dp)],
			Path:      dp,
			CreatedAt: now,
			UpdatedAt: now,
		}
		entry := staged{node: n}
		if sn.IsDir() {
			parentIDs[dp] = n.ID
			for name := range v.children[sp] {
				queue = append(queue, pair{paths.Join(sp, name), paths.Join(dp, name)})
			}
		} else {
			raw, cerr := v.contentLocked(ctx, sn)
			if cerr != nil {
				v.mu.Unlock()
				return Node{}, fmt.Errorf("copy %s: %w", sp, cerr)
			}
			buf := make([]byte, len(raw))
			copy(buf, raw)
			n.Size = sn.Size
			n.MimeType = sn.MimeType
			n.ContentID = uuid.NewString()
			entry.data = buf
		}
		plan = append(plan, entry)
	}

	muts := make([]mutation, 0, len(plan)*2)
	events := make([]Event, 0, len(plan))
	for _, entry := range plan {
		n := entry.node
		v.nodes[n.Path] = n
		v.childSet(paths.Parent(n.Path))[n.Name] = struct{}{}
		muts = append(muts, v.nodeMutation(n))
		if !n.IsDir() {
			v.contents[n.ContentID] = entry.data
			muts = append(muts, v.contentMutation(n.ContentID, entry.data))
		}
		events = append(events, Event{Kind: EventCreate, Path: n.Path, Node: *n})
	}
	v.flusher.enqueue(muts...)
	snapshot := *plan[0].node
	count := len(v.nodes)
	v.mu.Unlock()

	v.setNodeGauge(count)
	v.dispatch(events)
	return snapshot, nil
}

// contentLocked returns a file's raw content, loading and caching it
// from the store on a miss. Callers hold mu for writing.
func (v *VFS) contentLocked(ctx context.Context, n *Node) ([]byte, error) {
	if raw, ok := v.contents[n.ContentID]; ok {
		return raw, nil
	}
	value, found, err := v.db.Get(ctx, storeContents, n.ContentID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errNotExist("read", n.Path)
	}
	raw, err := v.decoder.DecodeAll(value, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	v.contents[n.ContentID] = raw
	return raw, nil
}
