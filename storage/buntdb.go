package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"

	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/utils"
)

const buntSnapPrefix = "snap:"

// BuntIO 使用 buntdb 存储快照，键为 snap:<分组>:<模式>:<玩家ID>，值为 JSON
type BuntIO struct {
	db *buntdb.DB
}

// OpenBunt opens the database file at path; ":memory:" keeps everything in memory.
func OpenBunt(path string) (*BuntIO, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb %s: %w", path, err)
	}
	return NewBuntIO(db), nil
}

func NewBuntIO(db *buntdb.DB) *BuntIO {
	return &BuntIO{db: db}
}

func snapKey(k types.Key) string {
	return buntSnapPrefix + utils.PackKey(k)
}

func (io *BuntIO) Save(ctx context.Context, rec *types.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return io.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(snapKey(rec.Key), string(payload), nil)
		return err
	})
}

func (io *BuntIO) Load(ctx context.Context, key types.Key) (*types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var value string
	err := io.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(snapKey(key))
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, types.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord([]byte(value))
}

// Each visits records in key order. fn runs outside the read transaction.
func (io *BuntIO) Each(ctx context.Context, fn func(rec *types.Record) error) error {
	var values []string
	err := io.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(buntSnapPrefix+"*", func(key, value string) bool {
			values = append(values, value)
			return true
		})
	})
	if err != nil {
		return err
	}

	for _, value := range values {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := decodeRecord([]byte(value))
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (io *BuntIO) Close() error {
	return io.db.Close()
}
