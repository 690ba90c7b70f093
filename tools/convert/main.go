package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/pflag"

	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/storage"
	"github.com/sealdice/perworld/tools/convert/converter"
)

func main() {
	flags := pflag.NewFlagSet("convert", pflag.ExitOnError)
	fromDriver := flags.String("from-driver", "flatfile", "source storage driver")
	fromPath := flags.String("from-path", "data", "source path (or redis address)")
	toDriver := flags.String("to-driver", "", "destination storage driver")
	toPath := flags.String("to-path", "", "destination path (or redis address)")
	renames := flags.StringArray("rename-group", nil, "rename a group while copying, old=new (repeatable)")
	skipExisting := flags.Bool("skip-existing", false, "keep records the destination already has")
	dryRun := flags.Bool("dry-run", false, "count records without writing")
	export := flags.String("export", "", "write every source record to this file instead of copying; - for stdout")
	formatFlag := flags.String("format", "", "export format: yaml or json (default detects from export path)")
	_ = flags.Parse(os.Args[1:])

	ctx := context.Background()

	src, err := storage.Open(storageConfig(*fromDriver, *fromPath))
	if err != nil {
		exitWithError(err)
	}
	defer src.Close()

	if *export != "" {
		doc, err := converter.Collect(ctx, src)
		if err != nil {
			exitWithError(err)
		}
		data, err := converter.MarshalOutput(doc, pickOutputFormat(*formatFlag, *export))
		if err != nil {
			exitWithError(err)
		}
		if err := writeOutput(data, *export); err != nil {
			exitWithError(err)
		}
		return
	}

	if *toDriver == "" {
		exitWithError(errors.New("specify --to-driver or --export"))
	}
	renameMap, err := converter.ParseRenames(*renames)
	if err != nil {
		exitWithError(err)
	}

	dst, err := storage.Open(storageConfig(*toDriver, *toPath))
	if err != nil {
		exitWithError(err)
	}
	defer dst.Close()

	res, err := converter.Copy(ctx, src, dst, converter.Options{
		DryRun:       *dryRun,
		SkipExisting: *skipExisting,
		RenameGroups: renameMap,
	})
	fmt.Printf("read %d, written %d, skipped %d\n", res.Read, res.Written, res.Skipped)
	if err != nil {
		exitWithError(err)
	}
}

func storageConfig(driver, path string) config.Storage {
	cfg := config.Storage{Driver: driver, Path: path}
	if driver == "redis" {
		cfg.Addr, cfg.Path = path, ""
	}
	return cfg
}

func pickOutputFormat(flagValue, outputPath string) string {
	switch strings.ToLower(flagValue) {
	case "json":
		return "json"
	case "yaml", "yml":
		return "yaml"
	case "":
		// fall through
	default:
		exitWithError(fmt.Errorf("unsupported output format: %s", flagValue))
	}

	ext := strings.ToLower(filepath.Ext(outputPath))
	if ext == ".json" {
		return "json"
	}
	return "yaml"
}

func writeOutput(data []byte, path string) error {
	if path == "-" {
		if len(data) == 0 {
			return nil
		}
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
		if data[len(data)-1] != '\n' {
			_, err := os.Stdout.Write([]byte("\n"))
			return err
		}
		return nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return err
		}
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
