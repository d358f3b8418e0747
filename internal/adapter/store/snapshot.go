package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"supportbot/internal/domain"
)

// ErrSnapshotCorrupt marks a snapshot file that exists but cannot be decoded.
var ErrSnapshotCorrupt = errors.New("vector store snapshot is corrupt")

var (
	bucketMeta       = []byte("meta")
	bucketChunks     = []byte("chunks")
	bucketEmbeddings = []byte("embeddings")

	keyModel     = []byte("model")
	keyDimension = []byte("dimension")
	keyCount     = []byte("count")
)

// snapshot is the persisted form of a VectorStore.
type snapshot struct {
	Model      string
	Dimension  int
	Chunks     []domain.Chunk
	Embeddings []domain.Embedding
}

// writeSnapshot builds a complete bbolt file next to path and renames it
// into place, so readers only ever see whole snapshots.
func writeSnapshot(path string, snap *snapshot) error {
	if len(snap.Chunks) != len(snap.Embeddings) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrLengthMismatch, len(snap.Chunks), len(snap.Embeddings))
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := fillSnapshot(tmpPath, snap); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func fillSnapshot(path string, snap *snapshot) error {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucket(bucketMeta)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketMeta, err)
		}
		chunks, err := tx.CreateBucket(bucketChunks)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketChunks, err)
		}
		embeddings, err := tx.CreateBucket(bucketEmbeddings)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketEmbeddings, err)
		}

		if err := putSchemaInfo(meta, &SchemaInfo{Version: CurrentSchemaVersion, Model: snap.Model}); err != nil {
			return err
		}
		if err := putJSON(meta, keyDimension, snap.Dimension); err != nil {
			return err
		}
		if err := putJSON(meta, keyCount, len(snap.Chunks)); err != nil {
			return err
		}

		for i := range snap.Chunks {
			key := positionKey(i)

			data, err := json.Marshal(snap.Chunks[i])
			if err != nil {
				return fmt.Errorf("failed to encode chunk %d: %w", i, err)
			}
			if err := chunks.Put(key, data); err != nil {
				return err
			}
			if err := embeddings.Put(key, encodeVector(snap.Embeddings[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return err
	}
	return db.Close()
}

// readSnapshot decodes the snapshot at path. Decoding problems are reported
// as ErrSnapshotCorrupt, unknown formats as ErrSchemaVersion.
func readSnapshot(path string) (*snapshot, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	defer db.Close()

	snap := &snapshot{}
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		chunks := tx.Bucket(bucketChunks)
		embeddings := tx.Bucket(bucketEmbeddings)
		if meta == nil || chunks == nil || embeddings == nil {
			return fmt.Errorf("%w: missing buckets", ErrSnapshotCorrupt)
		}

		info, err := getSchemaInfo(meta)
		if err != nil {
			return err
		}
		if err := info.Check(); err != nil {
			return err
		}
		snap.Model = info.Model

		var count int
		if err := getJSON(meta, keyCount, &count); err != nil {
			return err
		}
		if err := getJSON(meta, keyDimension, &snap.Dimension); err != nil {
			return err
		}

		snap.Chunks = make([]domain.Chunk, 0, count)
		if err := chunks.ForEach(func(k, v []byte) error {
			if err := expectPosition(k, len(snap.Chunks)); err != nil {
				return err
			}
			var chunk domain.Chunk
			if err := json.Unmarshal(v, &chunk); err != nil {
				return fmt.Errorf("%w: chunk %d: %v", ErrSnapshotCorrupt, len(snap.Chunks), err)
			}
			snap.Chunks = append(snap.Chunks, chunk)
			return nil
		}); err != nil {
			return err
		}

		snap.Embeddings = make([]domain.Embedding, 0, count)
		if err := embeddings.ForEach(func(k, v []byte) error {
			if err := expectPosition(k, len(snap.Embeddings)); err != nil {
				return err
			}
			vec, err := decodeVector(v)
			if err != nil {
				return err
			}
			if len(vec) != snap.Dimension {
				return fmt.Errorf("%w: embedding %d has %d dimensions, expected %d", ErrSnapshotCorrupt, len(snap.Embeddings), len(vec), snap.Dimension)
			}
			snap.Embeddings = append(snap.Embeddings, vec)
			return nil
		}); err != nil {
			return err
		}

		if len(snap.Chunks) != count || len(snap.Embeddings) != count {
			return fmt.Errorf("%w: expected %d entries, found %d chunks and %d embeddings",
				ErrSnapshotCorrupt, count, len(snap.Chunks), len(snap.Embeddings))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}

func expectPosition(key []byte, want int) error {
	if len(key) != 8 || binary.BigEndian.Uint64(key) != uint64(want) {
		return fmt.Errorf("%w: unexpected key at position %d", ErrSnapshotCorrupt, want)
	}
	return nil
}

func encodeVector(v domain.Embedding) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte) (domain.Embedding, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: vector of %d bytes", ErrSnapshotCorrupt, len(data))
	}
	v := make(domain.Embedding, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}

func putJSON(b *bbolt.Bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return b.Put(key, data)
}

func getJSON(b *bbolt.Bucket, key []byte, out any) error {
	data := b.Get(key)
	if data == nil {
		return fmt.Errorf("%w: missing %s", ErrSnapshotCorrupt, key)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSnapshotCorrupt, key, err)
	}
	return nil
}
