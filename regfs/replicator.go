package regfs

import (
	"context"
	"fmt"
	log "log/slog"
	"os"

	"github.com/meshvale/registerd"
	"github.com/meshvale/registerd/regfs/erasure"
)

// ErasureReplicator shards a signed operation's serialized bytes across
// registerd.ErasureCodingConfig.BaseFolderPathsAcrossDrives with
// github.com/klauspost/reedsolomon, an additional durability layer a node
// can use alongside Storage. Storage itself never calls it, so it does not
// change what Read or the loader observe: a node not using it simply never
// calls it, and a node reading back uses Read to recover the original bytes.
//
// Grounded on the teacher's ErasureCodingConfig and fs/erasure package.
type ErasureReplicator struct {
	cfg    registerd.ErasureCodingConfig
	coder  *erasure.Coder
	fileIO FileIO
}

// NewErasureReplicator validates cfg and builds a replicator from it.
func NewErasureReplicator(cfg registerd.ErasureCodingConfig, fileIO FileIO) (*ErasureReplicator, error) {
	coder, err := erasure.New(cfg.DataShardsCount, cfg.ParityShardsCount)
	if err != nil {
		return nil, err
	}
	if len(cfg.BaseFolderPathsAcrossDrives) != cfg.DataShardsCount+cfg.ParityShardsCount {
		return nil, fmt.Errorf("regfs: BaseFolderPathsAcrossDrives count must equal data+parity shard count")
	}
	if fileIO == nil {
		fileIO = NewFileIO()
	}
	return &ErasureReplicator{cfg: cfg, coder: coder, fileIO: fileIO}, nil
}

// Write erasure-encodes data and writes one shard file per configured drive
// under relPath (the op's path relative to each drive's base folder).
func (r *ErasureReplicator) Write(ctx context.Context, relPath string, data []byte) error {
	shards, err := r.coder.Encode(data)
	if err != nil {
		return err
	}
	var lastErr error
	for i, base := range r.cfg.BaseFolderPathsAcrossDrives {
		md := r.coder.ShardMetadata(len(data), shards, i)
		buf := make([]byte, len(md)+len(shards[i]))
		copy(buf, md)
		copy(buf[len(md):], shards[i])

		fn := fmt.Sprintf("%s%c%s_%d", base, os.PathSeparator, relPath, i)
		if err := r.fileIO.MkdirAll(ctx, dirOf(fn), permission); err != nil {
			lastErr = err
			continue
		}
		if err := r.fileIO.WriteFileSync(ctx, fn, buf, permission); err != nil && !os.IsExist(err) {
			lastErr = err
		}
	}
	return lastErr
}

// Read reassembles data from the shards stored under relPath, repairing
// damaged shards in place when cfg.RepairCorruptedShards is set.
func (r *ErasureReplicator) Read(ctx context.Context, relPath string) ([]byte, error) {
	n := len(r.cfg.BaseFolderPathsAcrossDrives)
	shards := make([][]byte, n)
	meta := make([][]byte, n)
	var lastErr error

	for i, base := range r.cfg.BaseFolderPathsAcrossDrives {
		fn := fmt.Sprintf("%s%c%s_%d", base, os.PathSeparator, relPath, i)
		ba, err := r.fileIO.ReadFile(ctx, fn)
		if err != nil {
			lastErr = err
			log.Warn("regfs: erasure: shard unreadable, attempting reconstruction", "file", fn, "error", err)
			continue
		}
		meta[i] = ba[:erasure.MetaDataSize]
		shards[i] = ba[erasure.MetaDataSize:]
	}

	anyPresent := false
	for _, s := range shards {
		if s != nil {
			anyPresent = true
			break
		}
	}
	if !anyPresent {
		return nil, lastErr
	}

	dr := r.coder.Decode(shards, meta)
	if dr.Err != nil {
		return nil, dr.Err
	}

	if r.cfg.RepairCorruptedShards && len(dr.Reconstructed) > 0 {
		for _, i := range dr.Reconstructed {
			base := r.cfg.BaseFolderPathsAcrossDrives[i]
			fn := fmt.Sprintf("%s%c%s_%d", base, os.PathSeparator, relPath, i)
			md := r.coder.ShardMetadata(len(dr.Data), shards, i)
			buf := make([]byte, len(md)+len(shards[i]))
			copy(buf, md)
			copy(buf[len(md):], shards[i])
			_ = r.fileIO.Remove(ctx, fn)
			if err := r.fileIO.WriteFileSync(ctx, fn, buf, permission); err != nil {
				log.Warn("regfs: erasure: failed repairing damaged shard", "file", fn, "error", err)
			}
		}
	}

	return dr.Data, nil
}
