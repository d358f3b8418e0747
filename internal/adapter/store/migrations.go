package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current snapshot format version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// ErrSchemaVersion marks a snapshot written in an unknown format.
var ErrSchemaVersion = errors.New("unsupported snapshot schema version")

var keySchemaVersion = []byte("schema_version")

// SchemaInfo identifies the format and embedding model of a snapshot.
type SchemaInfo struct {
	Version int    `json:"version"`
	Model   string `json:"model"`
}

// Check reports whether this build can read the snapshot.
func (i *SchemaInfo) Check() error {
	switch {
	case i.Version == 0:
		return fmt.Errorf("%w: missing schema version", ErrSnapshotCorrupt)
	case i.Version > CurrentSchemaVersion:
		return fmt.Errorf("%w: created by newer version (v%d > v%d)", ErrSchemaVersion, i.Version, CurrentSchemaVersion)
	}
	return nil
}

func putSchemaInfo(meta *bbolt.Bucket, info *SchemaInfo) error {
	versionData, err := json.Marshal(info.Version)
	if err != nil {
		return err
	}
	if err := meta.Put(keySchemaVersion, versionData); err != nil {
		return err
	}
	return meta.Put(keyModel, []byte(info.Model))
}

func getSchemaInfo(meta *bbolt.Bucket) (*SchemaInfo, error) {
	var info SchemaInfo
	if data := meta.Get(keySchemaVersion); data != nil {
		if err := json.Unmarshal(data, &info.Version); err != nil {
			return nil, fmt.Errorf("%w: schema version: %v", ErrSnapshotCorrupt, err)
		}
	}
	info.Model = string(meta.Get(keyModel))
	return &info, nil
}

// Inspect reads only the schema information of the snapshot at path.
func Inspect(path string) (*SchemaInfo, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{ReadOnly: true, Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotCorrupt, err)
	}
	defer db.Close()

	var info *SchemaInfo
	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil {
			return fmt.Errorf("%w: missing buckets", ErrSnapshotCorrupt)
		}
		var err error
		info, err = getSchemaInfo(meta)
		return err
	})
	return info, err
}

// RebuildCheck describes whether an existing snapshot can be reused.
type RebuildCheck struct {
	Exists       bool
	NeedsRebuild bool
	Info         *SchemaInfo
	Reason       string
}

// CheckSnapshot decides whether the snapshot at path must be rebuilt before
// it is used with the given embedding model. Vectors from different models
// are not comparable.
func CheckSnapshot(path, model string) (*RebuildCheck, error) {
	result := &RebuildCheck{}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return result, nil
	}
	result.Exists = true

	info, err := Inspect(path)
	if err != nil {
		result.NeedsRebuild = true
		result.Reason = err.Error()
		return result, nil
	}
	result.Info = info

	if err := info.Check(); err != nil {
		result.NeedsRebuild = true
		result.Reason = err.Error()
		return result, nil
	}

	if info.Model != model {
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding model changed (%s -> %s)", info.Model, model)
	}

	return result, nil
}
