package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/perworld"
	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/storage"
)

var (
	historyFn = filepath.Join(os.TempDir(), ".perworld_history")
	commands  = []string{"join", "move", "quit", "kick", "give", "mode", "pay", "show", "tick", "dump", "help", "exit"}
)

func main() {
	flags := pflag.NewFlagSet("perworld", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "config file, empty for defaults")
	driver := flags.String("driver", "memory", "storage driver when no config file is given")
	debug := flags.Bool("debug", false, "verbose logging")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *configPath == "" {
		cfg.Storage.Driver = *driver
	}
	cfg.Debug = cfg.Debug || *debug

	logger, _ := zap.NewDevelopment()
	if !cfg.Debug {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.InfoLevel))
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	economy := perworld.NewMemoryEconomy()
	pw := perworld.New(cfg, backend, perworld.WithEconomy(economy))
	pw.Start()
	sh := newShell(pw, economy, os.Stdout)

	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(line string) (c []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, strings.ToLower(line)) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFn); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}

	fmt.Printf("%s Shell v%s (storage: %s)\n", types.APPNAME, types.VERSION, cfg.Storage.Driver)
	ccTimes := 0

	for {
		if text, err := line.Prompt(">>> "); err == nil {
			if strings.TrimSpace(text) == "" {
				continue
			}
			line.AppendHistory(text)

			if err := sh.Exec(text); err != nil {
				if errors.Is(err, errExit) {
					break
				}
				fmt.Printf("错误: %s\n", err.Error())
			}
		} else if err == liner.ErrPromptAborted {
			if ccTimes >= 1 {
				fmt.Println("Interrupted")
				break
			} else {
				ccTimes += 1
				fmt.Println("Input Ctrl-c once more to exit")
			}
		} else {
			fmt.Print("Error reading line: ", err)
			break
		}
	}

	if f, err := os.Create(historyFn); err != nil {
		fmt.Println("Error writing history file: ", err)
	} else {
		_, _ = line.WriteHistory(f)
		_ = f.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := sh.Close(ctx); err != nil {
		fmt.Println("shutdown:", err)
	}
}
