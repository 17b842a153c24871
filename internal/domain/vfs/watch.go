package vfs

import (
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
)

type watcher struct {
	path    string
	fn      WatchFunc
	removed bool
}

// Watch registers a callback for every event whose path is equal to
// or nested under p. Rename events match against both the old and the
// new path. The returned cancel func is idempotent. The watched path
// does not need to exist yet.
func (v *VFS) Watch(p string, fn WatchFunc) (func(), error) {
	if paths.Validate(p) != nil {
		return nil, errInvalid("watch", p)
	}

	w := &watcher{path: p, fn: fn}
	v.watchMu.Lock()
	v.watchers = append(v.watchers, w)
	v.watchMu.Unlock()

	return func() {
		v.watchMu.Lock()
		defer v.watchMu.Unlock()
		if w.removed {
			return
		}
		w.removed = true
		kept := v.watchers[:0]
		for _, x := range v.watchers {
			if !x.removed {
				kept = append(kept, x)
			}
		}
		v.watchers = kept
	}, nil
}

// WatcherCount returns the number of live watchers
func (v *VFS) WatcherCount() int {
	v.watchMu.Lock()
	defer v.watchMu.Unlock()
	return len(v.watchers)
}

// dispatch delivers events to matching watchers. It runs after the
// tree lock is released, so callbacks may call back into the file
// system. Watchers added during dispatch see only later events.
func (v *VFS) dispatch(events []Event) {
	if len(events) == 0 {
		return
	}

	v.watchMu.Lock()
	snapshot := make([]*watcher, len(v.watchers))
	copy(snapshot, v.watchers)
	v.watchMu.Unlock()

	if len(snapshot) == 0 {
		return
	}

	for _, e := range events {
		for _, w := range snapshot {
			v.watchMu.Lock()
			removed := w.removed
			v.watchMu.Unlock()
			if removed {
				continue
			}
			if paths.Within(w.path, e.Path) || (e.OldPath != "" && paths.Within(w.path, e.OldPath)) {
				w.fn(e)
			}
		}
	}
}
