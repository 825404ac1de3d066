package erasure_test

import (
	"bytes"
	"testing"

	"github.com/meshvale/registerd/regfs/erasure"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := erasure.New(4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := bytes.Repeat([]byte("registerd-op-payload-"), 37)

	shards, err := c.Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(shards) != 6 {
		t.Fatalf("expected 6 shards, got %d", len(shards))
	}

	meta := make([][]byte, len(shards))
	for i := range shards {
		meta[i] = c.ShardMetadata(len(data), shards, i)
	}

	res := c.Decode(shards, meta)
	if res.Err != nil {
		t.Fatalf("Decode: %v", res.Err)
	}
	if !bytes.Equal(res.Data, data) {
		t.Fatalf("decoded data mismatch")
	}
}

func TestDecodeReconstructsMissingShard(t *testing.T) {
	c, err := erasure.New(4, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data := bytes.Repeat([]byte("x"), 500)

	shards, err := c.Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	meta := make([][]byte, len(shards))
	for i := range shards {
		meta[i] = c.ShardMetadata(len(data), shards, i)
	}

	missing := 1
	lost := shards[missing]
	shards[missing] = nil

	res := c.Decode(shards, meta)
	if res.Err != nil {
		t.Fatalf("Decode with missing shard: %v", res.Err)
	}
	if !bytes.Equal(res.Data, data) {
		t.Fatalf("decoded data mismatch after reconstruction")
	}
	if !bytes.Equal(shards[missing], lost) {
		t.Fatalf("missing shard was not correctly reconstructed")
	}
}

func TestDecodeRejectsEmptyShards(t *testing.T) {
	c, err := erasure.New(2, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res := c.Decode(nil, nil)
	if res.Err == nil {
		t.Fatalf("expected error for empty shards")
	}
}
