package regfs_test

import (
	"context"
	"os"
	"sync"
	"syscall"
	"testing"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/regfs"
)

// faultyFileIO wraps a real FileIO and fails every WriteFileSync with a
// failover-qualified I/O error, to exercise mirrorFileIO's failover path
// without needing an actually-broken disk.
type faultyFileIO struct {
	mu     sync.Mutex
	writes int
	base   regfs.FileIO
}

func (f *faultyFileIO) Exists(ctx context.Context, path string) bool { return f.base.Exists(ctx, path) }
func (f *faultyFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	return f.base.MkdirAll(ctx, path, perm)
}
func (f *faultyFileIO) WriteFileSync(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return registerd.IoError(syscall.EIO)
}
func (f *faultyFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return f.base.ReadFile(ctx, name)
}
func (f *faultyFileIO) Remove(ctx context.Context, name string) error { return f.base.Remove(ctx, name) }
func (f *faultyFileIO) RemoveAll(ctx context.Context, path string) error {
	return f.base.RemoveAll(ctx, path)
}
func (f *faultyFileIO) ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error) {
	return f.base.ReadDir(ctx, dir)
}

func TestMirrorFailsOverOnQualifiedIOError(t *testing.T) {
	ctx := context.Background()
	active := &faultyFileIO{base: regfs.NewFileIO()}
	passiveDir := t.TempDir()
	mirror := regfs.NewMirrorFileIO(active, regfs.NewFileIO())

	name := passiveDir + "/sub/op.bin"
	if err := mirror.WriteFileSync(ctx, name, []byte("payload"), 0o640); err != nil {
		t.Fatalf("expected failover to passive to succeed, got %v", err)
	}
	if active.writes != 1 {
		t.Fatalf("expected exactly one attempt against active, got %d", active.writes)
	}
	got, err := regfs.NewFileIO().ReadFile(ctx, name)
	if err != nil {
		t.Fatalf("ReadFile from passive: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestMirrorDoesNotFailOverOnNonQualifiedError(t *testing.T) {
	ctx := context.Background()
	active := regfs.NewFileIO()
	passive := regfs.NewFileIO()
	mirror := regfs.NewMirrorFileIO(active, passive)

	// Writing to an existing file with O_EXCL returns os.ErrExist, which is
	// not a failover-qualified condition — the mirror must surface it as-is
	// rather than duplicating the write onto the passive side.
	dir := t.TempDir()
	name := dir + "/op.bin"
	if err := active.WriteFileSync(ctx, name, []byte("first"), 0o640); err != nil {
		t.Fatalf("seed write: %v", err)
	}
	err := mirror.WriteFileSync(ctx, name, []byte("second"), 0o640)
	if !os.IsExist(err) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}
}
