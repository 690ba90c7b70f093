package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sealdice/perworld/perworld/types"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS player_snapshots (
	player_id  TEXT    NOT NULL,
	group_name TEXT    NOT NULL,
	game_mode  TEXT    NOT NULL,
	name       TEXT    NOT NULL,
	data       BLOB    NOT NULL,
	version    TEXT    NOT NULL,
	saved_at   INTEGER NOT NULL,
	PRIMARY KEY (player_id, group_name, game_mode)
)`

// SQLiteIO keeps one row per (player, group, mode) in player_snapshots.
type SQLiteIO struct {
	sqlDB *sql.DB
}

// OpenSQLite opens or creates the database and ensures the schema.
func OpenSQLite(path string) (*SQLiteIO, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite: storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// 单连接：写入串行，:memory: 也只有一个库
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteIO{sqlDB: sqlDB}, nil
}

func (s *SQLiteIO) Save(ctx context.Context, rec *types.Record) error {
	payload, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	version := rec.Version
	if version == "" {
		version = types.FORMAT_VERSION.String()
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO player_snapshots (player_id, group_name, game_mode, name, data, version, saved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (player_id, group_name, game_mode) DO UPDATE SET
		   name = excluded.name,
		   data = excluded.data,
		   version = excluded.version,
		   saved_at = excluded.saved_at`,
		rec.Key.PlayerID.String(),
		rec.Key.Group,
		rec.Key.GameMode.String(),
		rec.Name,
		payload,
		version,
		rec.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot %s: %w", rec.Key, err)
	}
	return nil
}

func (s *SQLiteIO) Load(ctx context.Context, key types.Key) (*types.Record, error) {
	var payload []byte
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT data FROM player_snapshots WHERE player_id = ? AND group_name = ? AND game_mode = ?`,
		key.PlayerID.String(), key.Group, key.GameMode.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return decodeRecord(payload)
}

func (s *SQLiteIO) Each(ctx context.Context, fn func(rec *types.Record) error) error {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT data FROM player_snapshots ORDER BY player_id, group_name, game_mode`)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	// 先读完再回调，回调里可能还要访问同一个库
	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	for _, payload := range payloads {
		rec, err := decodeRecord(payload)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIO) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
