package regfs

import (
	"context"
	log "log/slog"
	"os"
	"strings"

	"github.com/meshvale/registerd"
)

// mirrorFileIO wraps two base FileIO implementations — "active" and
// "passive" — and fails over the write path when the active one reports a
// failover-qualified I/O error (registerd.IsFailoverQualifiedIOError),
// grounded on the teacher's failover.go and its fs package's
// replication-tracker concept of an active/passive folder pair. The
// content-addressed filename makes retrying the write on the passive side
// safe even if the active side's write partially landed.
type mirrorFileIO struct {
	active  FileIO
	passive FileIO
}

// NewMirrorFileIO returns a FileIO that writes through active, falling back
// to passive on a failover-qualified error.
func NewMirrorFileIO(active, passive FileIO) FileIO {
	return &mirrorFileIO{active: active, passive: passive}
}

func (m *mirrorFileIO) Exists(ctx context.Context, path string) bool {
	return m.active.Exists(ctx, path) || m.passive.Exists(ctx, path)
}

func (m *mirrorFileIO) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	err := m.active.MkdirAll(ctx, path, perm)
	if err != nil && registerd.IsFailoverQualifiedIOError(err) {
		log.Warn("regfs: mirror: active MkdirAll failed over", "path", path, "error", err)
		return m.passive.MkdirAll(ctx, path, perm)
	}
	return err
}

func (m *mirrorFileIO) WriteFileSync(ctx context.Context, name string, data []byte, perm os.FileMode) error {
	err := m.active.WriteFileSync(ctx, name, data, perm)
	if err == nil || os.IsExist(err) {
		return err
	}
	if !registerd.IsFailoverQualifiedIOError(err) {
		return err
	}
	log.Warn("regfs: mirror: active write failed over to passive", "name", name, "error", err)
	return m.passive.WriteFileSync(ctx, name, data, perm)
}

func (m *mirrorFileIO) ReadFile(ctx context.Context, name string) ([]byte, error) {
	ba, err := m.active.ReadFile(ctx, name)
	if err == nil {
		return ba, nil
	}
	if registerd.IsFailoverQualifiedIOError(err) || os.IsNotExist(err) {
		return m.passive.ReadFile(ctx, name)
	}
	return nil, err
}

func (m *mirrorFileIO) Remove(ctx context.Context, name string) error {
	err := m.active.Remove(ctx, name)
	if err != nil && registerd.IsFailoverQualifiedIOError(err) {
		return m.passive.Remove(ctx, name)
	}
	return err
}

func (m *mirrorFileIO) RemoveAll(ctx context.Context, path string) error {
	err := m.active.RemoveAll(ctx, path)
	if err != nil && registerd.IsFailoverQualifiedIOError(err) {
		return m.passive.RemoveAll(ctx, path)
	}
	return err
}

func (m *mirrorFileIO) ReadDir(ctx context.Context, dir string) ([]os.DirEntry, error) {
	entries, err := m.active.ReadDir(ctx, dir)
	if err == nil {
		return entries, nil
	}
	if registerd.IsFailoverQualifiedIOError(err) || os.IsNotExist(err) || strings.Contains(err.Error(), "no such file") {
		return m.passive.ReadDir(ctx, dir)
	}
	return nil, err
}
