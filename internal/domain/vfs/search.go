package vfs

import (
	"context"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob returns every node whose path matches the pattern, sorted by
// path. Patterns use doublestar syntax against full absolute paths,
// so "/Documents/**/*.txt" matches at any depth.
func (v *VFS) Glob(ctx context.Context, pattern string) (_ []Node, err error) {
	start := time.Now()
	defer func() { v.record("glob", start, err) }()

	if !doublestar.ValidatePattern(pattern) {
		return nil, errInvalid("glob", pattern)
	}

	v.mu.RLock()
	out := make([]Node, 0)
	for p, n := range v.nodes {
		matched, merr := doublestar.Match(pattern, p)
		if merr != nil {
			v.mu.RUnlock()
			return nil, errInvalid("glob", pattern)
		}
		if matched {
			out = append(out, *n)
		}
	}
	v.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
