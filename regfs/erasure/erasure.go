// Package erasure implements Reed-Solomon erasure coding for op-file shard
// replication, adapted from the teacher's fs/erasure package: same
// reedsolomon-backed split/encode/decode/reconstruct flow, re-targeted at
// whole signed-operation byte blobs instead of B-tree blobs.
package erasure

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"errors"
	log "log/slog"

	"github.com/klauspost/reedsolomon"
)

var (
	errNoShards = errors.New("erasure: shards can't be nil or empty")
	errShardsOK = errors.New("erasure: shards passed checksum check, should be good")
)

// MetaDataSize is the per-shard metadata size: 1 stuffed-zero-count byte
// plus a 16-byte MD5 checksum.
const MetaDataSize = 17

// Coder erasure-encodes and decodes op payloads into data+parity shards.
type Coder struct {
	DataShardsCount   int
	ParityShardsCount int
	encoder           reedsolomon.Encoder
}

// New constructs a Coder for the given shard counts.
func New(dataShards, parityShards int) (*Coder, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &Coder{DataShardsCount: dataShards, ParityShardsCount: parityShards, encoder: enc}, nil
}

// Encode splits data into DataShardsCount+ParityShardsCount shards and fills
// in the parity shards.
func (c *Coder) Encode(data []byte) ([][]byte, error) {
	shards, err := c.encoder.Split(data)
	if err != nil {
		return nil, err
	}
	if err := c.encoder.Encode(shards); err != nil {
		return nil, err
	}
	return shards, nil
}

// ShardMetadata computes the metadata stored alongside shard shards[i]:
// the stuffed-zero-count of the last shard (if data doesn't divide evenly)
// plus an MD5 checksum of the shard's own bytes.
func (c *Coder) ShardMetadata(dataSize int, shards [][]byte, shardIndex int) []byte {
	checksum := md5.Sum(shards[shardIndex])
	r := make([]byte, 1+len(checksum))
	if dataSize%c.DataShardsCount != 0 {
		r[0] = byte(c.DataShardsCount - dataSize%c.DataShardsCount)
	}
	copy(r[1:], checksum[:])
	return r
}

// DecodeResult is the result of Decode.
type DecodeResult struct {
	Data []byte
	// Reconstructed holds the indices of shards that were missing or
	// corrupted and had to be rebuilt — callers may want to rewrite them.
	Reconstructed []int
	Err           error
}

// Decode reverses Encode: it verifies shards against their parity,
// reconstructing missing or corrupted ones (detected via the checksum in
// shardsMetaData) where the erasure coding has enough redundancy to do so.
func (c *Coder) Decode(shards [][]byte, shardsMetaData [][]byte) *DecodeResult {
	if len(shards) == 0 {
		return &DecodeResult{Err: errNoShards}
	}

	r := &DecodeResult{}
	if ok, _ := c.encoder.Verify(shards); !ok {
		log.Info("erasure: verification failed, reconstructing")
		r = c.reconstructMissing(shards)
		if r.Err != nil {
			return r
		}
		if ok, _ := c.encoder.Verify(shards); !ok {
			dr := c.detectCorruptedThenReconstruct(shards, shardsMetaData)
			if dr.Err != nil {
				return dr
			}
			r = dr
		}
	}

	var b bytes.Buffer
	w := bufio.NewWriter(&b)
	if err := c.encoder.Join(w, shards, len(shards[0])*c.DataShardsCount); err != nil {
		return &DecodeResult{Err: err}
	}
	w.Flush()
	// Every shard's metadata carries the same stuffed-zero count; take it
	// from the first shard whose metadata was read, since a missing shard
	// has none.
	pad := 0
	for _, md := range shardsMetaData {
		if len(md) > 0 {
			pad = int(md[0])
			break
		}
	}
	out := make([]byte, len(b.Bytes())-pad)
	copy(out, b.Bytes())
	r.Data = out
	return r
}

func (c *Coder) reconstructMissing(shards [][]byte) *DecodeResult {
	r := &DecodeResult{}
	want := make([]bool, len(shards))
	for i := range shards {
		if shards[i] == nil {
			r.Reconstructed = append(r.Reconstructed, i)
			want[i] = true
		}
	}
	if err := c.encoder.ReconstructSome(shards, want); err != nil {
		r.Err = err
	}
	return r
}

func (c *Coder) detectCorruptedThenReconstruct(shards [][]byte, shardsMetaData [][]byte) *DecodeResult {
	var corrupted []int
	for i := range shards {
		want := shardsMetaData[i][1:]
		got := md5.Sum(shards[i])
		if !bytes.Equal(want, got[:]) {
			corrupted = append(corrupted, i)
			shards[i] = nil
		}
	}
	if len(corrupted) == 0 {
		return &DecodeResult{Err: errShardsOK}
	}
	if err := c.encoder.Reconstruct(shards); err != nil {
		return &DecodeResult{Err: err}
	}
	if ok, err := c.encoder.Verify(shards); !ok {
		return &DecodeResult{Err: err}
	}
	return &DecodeResult{Reconstructed: corrupted}
}
