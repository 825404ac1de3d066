// Package regfs implements the filesystem-backed Log Loader/Reconstructor
// and Storage API (design spec §4.4, §4.5), plus opt-in durability add-ons
// (mirrored failover writes, erasure-coded shard replication, direct I/O).
package regfs

import (
	"context"
	"os"
	"strings"

	retry "github.com/sethvargo/go-retry"

	"github.com/meshvale/registerd"
)

// permission is the mode every register directory and op file is created
// with.
const permission os.FileMode = 0o750

// FileIO is the filesystem boundary regfs depends on, grounded on the
// teacher's fs.FileIO: an interface so tests can substitute an in-memory or
// fault-injecting implementation, and so the durability add-ons can wrap a
// base implementation without regfs's core logic knowing the difference.
type FileIO interface {
	Exists(ctx context.Context, path string) bool
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
	// WriteFileSync creates name with data and fsyncs it before returning.
	// It returns os.ErrExist (checkable with os.IsExist) if the file is
	// already present — the content-addressed skip-if-exists case is
	// cheap and safe precisely because op files are immutable once written.
	WriteFileSync(ctx context.Context, name string, data []byte, perm os.FileMode) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
	RemoveAll(ctx context.Context, path string) error
	ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error)
}

type defaultFileIO struct{}

// NewFileIO returns the production FileIO backed by the os package.
func NewFileIO() FileIO {
	return defaultFileIO{}
}

func (defaultFileIO) Exists(_ context.Context, path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

func (fio defaultFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return registerd.Retry(ctx, func(context.Context) error {
		err := os.MkdirAll(path, perm)
		if err != nil && !strings.Contains(err.Error(), "read-only file system") {
			return retry.RetryableError(registerd.IoError(err))
		}
		return nil
	}, nil)
}

func (fio defaultFileIO) WriteFileSync(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if os.IsExist(err) {
			return err
		}
		if derr := fio.MkdirAll(ctx, dirOf(name), permission); derr != nil {
			return derr
		}
		return registerd.Retry(ctx, func(context.Context) error {
			f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
			if err != nil {
				if os.IsExist(err) {
					return err
				}
				return retry.RetryableError(registerd.IoError(err))
			}
			return writeSyncClose(f, data)
		}, nil)
	}
	return writeSyncClose(f, data)
}

func writeSyncClose(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return registerd.IoError(err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return registerd.IoError(err)
	}
	return f.Close()
}

func dirOf(name string) string {
	i := strings.LastIndexByte(name, os.PathSeparator)
	if i < 0 {
		return "."
	}
	return name[:i]
}

func (fio defaultFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	var ba []byte
	err := registerd.Retry(ctx, func(context.Context) error {
		var err error
		ba, err = os.ReadFile(name)
		if err != nil {
			return retry.RetryableError(registerd.IoError(err))
		}
		return nil
	}, nil)
	return ba, err
}

func (fio defaultFileIO) Remove(ctx context.Context, name string) error {
	return registerd.Retry(ctx, func(context.Context) error {
		if err := os.Remove(name); err != nil {
			return retry.RetryableError(registerd.IoError(err))
		}
		return nil
	}, nil)
}

func (fio defaultFileIO) RemoveAll(ctx context.Context, path string) error {
	return registerd.Retry(ctx, func(context.Context) error {
		if err := os.RemoveAll(path); err != nil {
			return retry.RetryableError(registerd.IoError(err))
		}
		return nil
	}, nil)
}

func (fio defaultFileIO) ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error) {
	var entries []os.DirEntry
	err := registerd.Retry(ctx, func(context.Context) error {
		var err error
		entries, err = os.ReadDir(dir)
		if err != nil {
			return retry.RetryableError(registerd.IoError(err))
		}
		return nil
	}, nil)
	return entries, err
}
