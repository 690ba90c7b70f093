package storage

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/sealdice/perworld/perworld/types"
)

// Backend is a gateway that can also enumerate its records.
type Backend interface {
	types.SnapshotIO
	types.RecordLister
}

func encodeRecord(rec *types.Record) ([]byte, error) {
	if rec.Version == "" {
		stamped := *rec
		stamped.Version = types.FORMAT_VERSION.String()
		rec = &stamped
	}
	return json.Marshal(rec)
}

// decodeRecord rejects records written by a newer major format. Records
// without a version predate versioning and are accepted.
func decodeRecord(data []byte) (*types.Record, error) {
	rec := &types.Record{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Version == "" {
		return rec, nil
	}
	v, err := semver.NewVersion(rec.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: bad version %q", types.ErrIncompatibleRecord, rec.Version)
	}
	if v.Major() > types.FORMAT_VERSION.Major() {
		return nil, fmt.Errorf("%w: %s (%s)", types.ErrIncompatibleRecord, rec.Version, rec.Key)
	}
	return rec, nil
}
