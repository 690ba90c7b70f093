package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/utils"
)

// FlatFileIO stores one JSON file per record under <dir>/<player>/<group>_<mode>.json.
// Files are replaced atomically so a crash never leaves a half-written record.
type FlatFileIO struct {
	dir string
}

func OpenFlatFile(dir string) (*FlatFileIO, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("flatfile: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("flatfile: %w", err)
	}
	return &FlatFileIO{dir: dir}, nil
}

func (f *FlatFileIO) path(k types.Key) string {
	name := fmt.Sprintf("%s_%s.json", utils.EncodeKeyPart(k.Group), k.GameMode)
	return filepath.Join(f.dir, k.PlayerID.String(), name)
}

func (f *FlatFileIO) Save(ctx context.Context, rec *types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	p := f.path(rec.Key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(p, bytes.NewReader(payload))
}

func (f *FlatFileIO) Load(ctx context.Context, key types.Key) (*types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, types.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(data)
}

// Each walks player directories in name order. Entries that are not player
// directories or record files are skipped.
func (f *FlatFileIO) Each(ctx context.Context, fn func(rec *types.Record) error) error {
	players, err := os.ReadDir(f.dir)
	if err != nil {
		return err
	}
	for _, pd := range players {
		if !pd.IsDir() {
			continue
		}
		if _, err := uuid.Parse(pd.Name()); err != nil {
			continue
		}
		files, err := os.ReadDir(filepath.Join(f.dir, pd.Name()))
		if err != nil {
			return err
		}
		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Join(f.dir, pd.Name(), file.Name()))
			if err != nil {
				return err
			}
			rec, err := decodeRecord(data)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", pd.Name(), file.Name(), err)
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *FlatFileIO) Close() error {
	return nil
}
