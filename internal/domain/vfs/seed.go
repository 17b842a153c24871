package vfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
)

// Seed creates the standard directory layout. Existing directories
// are left alone, so seeding every boot is safe.
func (v *VFS) Seed(ctx context.Context) error {
	for _, dir := range paths.StandardDirectories() {
		if err := v.Mkdir(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

// ImportHost mirrors a host directory into the virtual tree under
// dstDir, returning the number of files imported. Dot-prefixed
// entries are skipped. Unreadable host files are logged and skipped;
// virtual-side failures abort the walk.
func (v *VFS) ImportHost(ctx context.Context, hostDir, dstDir string) (int, error) {
	if err := v.Mkdir(ctx, dstDir); err != nil {
		return 0, err
	}

	var imported atomic.Int64
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, hostDir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			return nil
		}

		rel, rerr := filepath.Rel(hostDir, p)
		if rerr != nil || rel == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		dst := paths.Join(dstDir, filepath.ToSlash(rel))
		if d.IsDir() {
			return v.Mkdir(ctx, dst)
		}

		data, rerr := os.ReadFile(p)
		if rerr != nil {
			v.logger.Warn("skipping unreadable host file",
				zap.String("path", p),
				zap.Error(rerr))
			return nil
		}
		if _, werr := v.WriteFile(ctx, dst, data); werr != nil {
			return werr
		}
		imported.Add(1)
		return nil
	})

	return int(imported.Load()), err
}
