package storage

import (
	"fmt"

	"github.com/sealdice/perworld/config"
)

// Open 按配置创建存储后端
func Open(cfg config.Storage) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case "memory":
		b = NewMemoryIO()
	case "flatfile":
		b, err = wrap(OpenFlatFile(cfg.Path))
	case "buntdb":
		b, err = wrap(OpenBunt(cfg.Path))
	case "sqlite":
		b, err = wrap(OpenSQLite(cfg.Path))
	case "redis":
		b, err = wrap(OpenRedis(cfg.Addr, cfg.Password, cfg.DB))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}
	return b, nil
}

// wrap keeps a failed open from turning into a non-nil interface holding a nil pointer.
func wrap[T Backend](b T, err error) (Backend, error) {
	if err != nil {
		return nil, err
	}
	return b, nil
}
