package vfs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/store"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
)

// Object stores the file system persists: node metadata keyed by path,
// and content blobs keyed by content id.
const (
	storeNodes    = "nodes"
	storeContents = "contents"

	// SchemaVersion is the store version Schema migrates to
	SchemaVersion = 1
)

// Schema creates the object stores the file system needs. Pass it as
// the upgrade callback when opening the backing store.
func Schema(u *store.Upgrade) error {
	if u.OldVersion < 1 {
		if err := u.CreateStore(storeNodes); err != nil {
			return err
		}
		if err := u.CreateStore(storeContents); err != nil {
			return err
		}
	}
	return nil
}

// Config wires a file system to its collaborators
type Config struct {
	DB      store.DB
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// VFS is the virtual file system. The in-memory node and content
// caches are authoritative for the session; the flusher persists
// mutations to the backing store in order.
type VFS struct {
	mu       sync.RWMutex
	nodes    map[string]*Node               // path -> node
	children map[string]map[string]struct{} // dir path -> child names
	contents map[string][]byte              // content id -> raw bytes

	db      store.DB
	flusher *flusher
	encoder *zstd.Encoder
	decoder *zstd.Decoder

	watchMu  sync.Mutex
	watchers []*watcher

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New builds a file system over the given store, loading every node
// record into the cache and creating the root directory on first run.
func New(ctx context.Context, cfg Config) (*VFS, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("vfs: store required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("vfs: init compressor: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("vfs: init decompressor: %w", err)
	}

	v := &VFS{
		nodes:    make(map[string]*Node),
		children: make(map[string]map[string]struct{}),
		contents: make(map[string][]byte),
		db:       cfg.DB,
		encoder:  encoder,
		decoder:  decoder,
		logger:   logger.Named("vfs"),
		metrics:  cfg.Metrics,
	}

	if err := v.load(ctx); err != nil {
		return nil, err
	}
	v.flusher = newFlusher(cfg.DB, v.logger, cfg.Metrics)

	if _, ok := v.nodes[paths.Root]; !ok {
		now := time.Now()
		root := &Node{
			ID:        id.NewNodeID().String(),
			Type:      NodeDir,
			Name:      paths.Root,
			Path:      paths.Root,
			CreatedAt: now,
			UpdatedAt: now,
		}
		v.nodes[paths.Root] = root
		v.flusher.enqueue(v.nodeMutation(root))
	}

	v.setNodeGauge(len(v.nodes))
	v.logger.Info("file system ready", zap.Int("nodes", len(v.nodes)))
	return v, nil
}

// load reads every node record from the store into the cache
func (v *VFS) load(ctx context.Context) error {
	records, err := v.db.GetAll(ctx, storeNodes)
	if err != nil {
		return fmt.Errorf("vfs: load nodes: %w", err)
	}
	for _, rec := range records {
		var n Node
		if err := sonic.Unmarshal(rec.Value, &n); err != nil || n.Path != rec.Key {
			v.logger.Warn("skipping corrupt node record",
				zap.String("key", rec.Key),
				zap.Error(err))
			continue
		}
		node := n
		v.nodes[node.Path] = &node
		if node.Path != paths.Root {
			v.childSet(paths.Parent(node.Path))[node.Name] = struct{}{}
		}
	}
	return nil
}

// Flush blocks until every mutation issued before the call has been
// written to the backing store.
func (v *VFS) Flush(ctx context.Context) error {
	return v.flusher.flush(ctx)
}

// Close drains pending writes and stops the flusher. The backing
// store stays open; its owner closes it.
func (v *VFS) Close() {
	v.flusher.close()
	v.decoder.Close()
	if err := v.encoder.Close(); err != nil {
		v.logger.Warn("compressor close failed", zap.Error(err))
	}
}

// Stats summarizes the tree
type Stats struct {
	Nodes       int `json:"nodes"`
	Files       int `json:"files"`
	Directories int `json:"directories"`
}

// GetStats returns tree counts
func (v *VFS) GetStats() Stats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := Stats{Nodes: len(v.nodes)}
	for _, n := range v.nodes {
		if n.IsDir() {
			s.Directories++
		} else {
			s.Files++
		}
	}
	return s
}

// childSet returns the mutable child-name set for a directory,
// creating it on demand. Callers hold mu.
func (v *VFS) childSet(dir string) map[string]struct{} {
	set, ok := v.children[dir]
	if !ok {
		set = make(map[string]struct{})
		v.children[dir] = set
	}
	return set
}

// nodeMutation snapshots a node into a pending store write. Encoding
// happens at enqueue time so later mutations of the same node cannot
// leak into an earlier write.
func (v *VFS) nodeMutation(n *Node) mutation {
	data, err := sonic.Marshal(n)
	if err != nil {
		// Unreachable for a plain struct; keep the record loadable anyway.
		v.logger.Error("encode node failed", zap.String("path", n.Path), zap.Error(err))
		data = []byte("{}")
	}
	return mutation{store: storeNodes, key: n.Path, value: data}
}

func (v *VFS) contentMutation(contentID string, raw []byte) mutation {
	return mutation{store: storeContents, key: contentID, value: v.encoder.EncodeAll(raw, nil)}
}

func deleteMutation(storeName, key string) mutation {
	return mutation{store: storeName, key: key}
}

func (v *VFS) setNodeGauge(count int) {
	if v.metrics != nil {
		v.metrics.SetFSNodes(count)
	}
}

func (v *VFS) record(op string, start time.Time, err error) {
	if v.metrics != nil {
		v.metrics.RecordFSOp(op, err, time.Since(start))
	}
}
