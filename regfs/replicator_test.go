package regfs_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/regfs"
)

func TestErasureReplicatorWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	drives := []string{t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir()}
	cfg := registerd.ErasureCodingConfig{
		DataShardsCount:             4,
		ParityShardsCount:           2,
		BaseFolderPathsAcrossDrives: drives,
		RepairCorruptedShards:       true,
	}
	r, err := regfs.NewErasureReplicator(cfg, regfs.NewFileIO())
	if err != nil {
		t.Fatalf("NewErasureReplicator: %v", err)
	}

	data := bytes.Repeat([]byte("op-payload-"), 50)
	if err := r.Write(ctx, "aa/bb/opid", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := r.Read(ctx, "aa/bb/opid")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("round-tripped data mismatch")
	}
}

func TestErasureReplicatorSurvivesLostDrive(t *testing.T) {
	ctx := context.Background()
	drives := []string{t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir(), t.TempDir()}
	cfg := registerd.ErasureCodingConfig{
		DataShardsCount:             4,
		ParityShardsCount:           2,
		BaseFolderPathsAcrossDrives: drives,
	}
	r, err := regfs.NewErasureReplicator(cfg, regfs.NewFileIO())
	if err != nil {
		t.Fatalf("NewErasureReplicator: %v", err)
	}

	data := bytes.Repeat([]byte("y"), 333)
	if err := r.Write(ctx, "opid", data); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// Simulate a lost drive by removing its shard directory entirely.
	if err := regfs.NewFileIO().RemoveAll(ctx, drives[0]); err != nil {
		t.Fatalf("simulate drive loss: %v", err)
	}

	got, err := r.Read(ctx, "opid")
	if err != nil {
		t.Fatalf("Read after losing one drive: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("reconstructed data mismatch")
	}
}

func TestNewErasureReplicatorRejectsMismatchedDriveCount(t *testing.T) {
	cfg := registerd.ErasureCodingConfig{
		DataShardsCount:             4,
		ParityShardsCount:           2,
		BaseFolderPathsAcrossDrives: []string{"/tmp/only-one"},
	}
	if _, err := regfs.NewErasureReplicator(cfg, regfs.NewFileIO()); err == nil {
		t.Fatalf("expected an error for a shard/drive count mismatch")
	}
}
