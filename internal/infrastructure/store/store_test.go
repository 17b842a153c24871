package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func desktopSchema(u *Upgrade) error {
	if err := u.CreateStore("nodes"); err != nil {
		return err
	}
	return u.CreateStore("contents")
}

// backends returns one of each backend migrated to the same schema
func backends(t *testing.T) map[string]DB {
	t.Helper()
	ctx := context.Background()

	sq, err := OpenSQLite(ctx, Options{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Name:    "desktop",
		Version: 1,
		Upgrade: desktopSchema,
	})
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	mem, err := OpenMemory("desktop", 1, desktopSchema)
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	return map[string]DB{"sqlite": sq, "memory": mem}
}

func TestOpenCreatesStores(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, "desktop", db.Name())
			assert.Equal(t, 1, db.Version())
			assert.Equal(t, []string{"contents", "nodes"}, db.Stores())
		})
	}
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := db.Get(ctx, "nodes", "/a")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, db.Put(ctx, "nodes", "/a", []byte("alpha")))
			v, ok, err := db.Get(ctx, "nodes", "/a")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("alpha"), v)

			// Overwrite replaces
			require.NoError(t, db.Put(ctx, "nodes", "/a", []byte("beta")))
			v, _, _ = db.Get(ctx, "nodes", "/a")
			assert.Equal(t, []byte("beta"), v)

			require.NoError(t, db.Delete(ctx, "nodes", "/a"))
			_, ok, err = db.Get(ctx, "nodes", "/a")
			require.NoError(t, err)
			assert.False(t, ok)

			// Deleting again is not an error
			require.NoError(t, db.Delete(ctx, "nodes", "/a"))
		})
	}
}

func TestGetAllAndKeysOrdered(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(ctx, "nodes", "/c", []byte("3")))
			require.NoError(t, db.Put(ctx, "nodes", "/a", []byte("1")))
			require.NoError(t, db.Put(ctx, "nodes", "/b", []byte("2")))

			keys, err := db.Keys(ctx, "nodes")
			require.NoError(t, err)
			assert.Equal(t, []string{"/a", "/b", "/c"}, keys)

			records, err := db.GetAll(ctx, "nodes")
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, "/a", records[0].Key)
			assert.Equal(t, []byte("1"), records[0].Value)
			assert.Equal(t, "/c", records[2].Key)
		})
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(ctx, "contents", "c1", []byte("x")))
			require.NoError(t, db.Put(ctx, "contents", "c2", []byte("y")))
			require.NoError(t, db.Clear(ctx, "contents"))

			keys, err := db.Keys(ctx, "contents")
			require.NoError(t, err)
			assert.Empty(t, keys)

			// Other stores untouched
			require.NoError(t, db.Put(ctx, "nodes", "/a", []byte("z")))
			require.NoError(t, db.Clear(ctx, "contents"))
			_, ok, _ := db.Get(ctx, "nodes", "/a")
			assert.True(t, ok)
		})
	}
}

func TestUnknownStore(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, _, err := db.Get(ctx, "bogus", "k")
			assert.ErrorIs(t, err, ErrUnknownStore)

			err = db.Put(ctx, "bogus", "k", nil)
			assert.ErrorIs(t, err, ErrUnknownStore)
		})
	}
}

func TestTransactCommit(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := db.Transact(ctx, []string{"nodes", "contents"}, ReadWrite, func(tx Tx) error {
				if err := tx.Put("nodes", "/file", []byte("meta")); err != nil {
					return err
				}
				return tx.Put("contents", "blob1", []byte("data"))
			})
			require.NoError(t, err)

			v, ok, err := db.Get(ctx, "nodes", "/file")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, []byte("meta"), v)

			_, ok, _ = db.Get(ctx, "contents", "blob1")
			assert.True(t, ok)
		})
	}
}

func TestTransactRollback(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(ctx, "nodes", "/keep", []byte("old")))

			err := db.Transact(ctx, []string{"nodes"}, ReadWrite, func(tx Tx) error {
				if err := tx.Put("nodes", "/keep", []byte("new")); err != nil {
					return err
				}
				if err := tx.Put("nodes", "/extra", []byte("x")); err != nil {
					return err
				}
				return boom
			})
			assert.ErrorIs(t, err, boom)

			v, ok, _ := db.Get(ctx, "nodes", "/keep")
			assert.True(t, ok)
			assert.Equal(t, []byte("old"), v, "failed transaction must not commit")

			_, ok, _ = db.Get(ctx, "nodes", "/extra")
			assert.False(t, ok)
		})
	}
}

func TestTransactReadOnly(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put(ctx, "nodes", "/r", []byte("v")))

			err := db.Transact(ctx, []string{"nodes"}, ReadOnly, func(tx Tx) error {
				v, ok, err := tx.Get("nodes", "/r")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, []byte("v"), v)

				return tx.Put("nodes", "/r", []byte("w"))
			})
			assert.ErrorIs(t, err, ErrReadOnly)
		})
	}
}

func TestTransactScope(t *testing.T) {
	ctx := context.Background()
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := db.Transact(ctx, []string{"nodes"}, ReadWrite, func(tx Tx) error {
				_, _, err := tx.Get("contents", "c")
				return err
			})
			assert.ErrorIs(t, err, ErrOutOfScope)
		})
	}
}

func TestSQLiteReopenAndMigrate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	db, err := OpenSQLite(ctx, Options{Path: path, Name: "desktop", Version: 1, Upgrade: desktopSchema})
	require.NoError(t, err)
	require.NoError(t, db.Put(ctx, "nodes", "/persisted", []byte("survives")))
	require.NoError(t, db.Close())

	// Same version: no upgrade, data survives
	db, err = OpenSQLite(ctx, Options{Path: path, Name: "desktop", Version: 1, Upgrade: desktopSchema})
	require.NoError(t, err)
	v, ok, err := db.Get(ctx, "nodes", "/persisted")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("survives"), v)
	require.NoError(t, db.Close())

	// Higher version: upgrade runs with old/new versions
	db, err = OpenSQLite(ctx, Options{Path: path, Name: "desktop", Version: 2, Upgrade: func(u *Upgrade) error {
		assert.Equal(t, 1, u.OldVersion)
		assert.Equal(t, 2, u.NewVersion)
		assert.True(t, u.HasStore("nodes"))
		return u.CreateStore("extra")
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"contents", "extra", "nodes"}, db.Stores())
	require.NoError(t, db.Close())

	// Downgrade refused
	_, err = OpenSQLite(ctx, Options{Path: path, Name: "desktop", Version: 1, Upgrade: desktopSchema})
	assert.ErrorIs(t, err, ErrDowngrade)
}

func TestClosedHandle(t *testing.T) {
	ctx := context.Background()
	mem, err := OpenMemory("desktop", 1, desktopSchema)
	require.NoError(t, err)
	require.NoError(t, mem.Close())

	_, _, err = mem.Get(ctx, "nodes", "/a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, mem.Put(ctx, "nodes", "/a", nil), ErrClosed)
}

func TestMemoryIsolatedPerOpen(t *testing.T) {
	ctx := context.Background()
	a, err := OpenMemory("desktop", 1, desktopSchema)
	require.NoError(t, err)
	b, err := OpenMemory("desktop", 1, desktopSchema)
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, "nodes", "/only-a", []byte("x")))
	_, ok, err := b.Get(ctx, "nodes", "/only-a")
	require.NoError(t, err)
	assert.False(t, ok, "memory databases must not share state")
}
