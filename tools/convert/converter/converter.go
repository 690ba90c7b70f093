package converter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sealdice/perworld/perworld/types"
)

type Options struct {
	DryRun       bool
	SkipExisting bool              // 目标已有同键记录时跳过
	RenameGroups map[string]string // 旧分组名 -> 新分组名
}

type Result struct {
	Read    int
	Written int
	Skipped int
}

// ParseRenames parses old=new pairs.
func ParseRenames(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range pairs {
		from, to, ok := strings.Cut(pair, "=")
		from, to = strings.TrimSpace(from), strings.TrimSpace(to)
		if !ok || from == "" || to == "" {
			return nil, fmt.Errorf("bad rename %q, want old=new", pair)
		}
		out[from] = to
	}
	return out, nil
}

// Copy moves every record of src into dst, renaming groups on the way.
// Records keep their saved time and format version.
func Copy(ctx context.Context, src types.RecordLister, dst types.SnapshotIO, opts Options) (Result, error) {
	var res Result
	err := src.Each(ctx, func(rec *types.Record) error {
		res.Read++
		if to, ok := opts.RenameGroups[rec.Key.Group]; ok {
			rec.Key.Group = to
		}

		if opts.SkipExisting {
			_, err := dst.Load(ctx, rec.Key)
			switch {
			case err == nil:
				res.Skipped++
				return nil
			case !errors.Is(err, types.ErrRecordNotFound):
				return fmt.Errorf("check %s: %w", rec.Key, err)
			}
		}

		if opts.DryRun {
			return nil
		}
		if err := dst.Save(ctx, rec); err != nil {
			return fmt.Errorf("write %s: %w", rec.Key, err)
		}
		res.Written++
		return nil
	})
	return res, err
}

// Export 导出文档
type Export struct {
	Format  string          `json:"format" yaml:"format"`
	Records []*types.Record `json:"records" yaml:"records"`
}

func Collect(ctx context.Context, src types.RecordLister) (*Export, error) {
	out := &Export{Format: types.FORMAT_VERSION.String()}
	err := src.Each(ctx, func(rec *types.Record) error {
		out.Records = append(out.Records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarshalOutput renders an export in the requested format.
func MarshalOutput(export *Export, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(export, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(export)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
