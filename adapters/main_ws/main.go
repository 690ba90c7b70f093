package main

// 宿主桥接服务：等待游戏服插件通过 WebSocket 上报玩家事件

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sealdice/perworld/adapters"
	"github.com/sealdice/perworld/config"
	"github.com/sealdice/perworld/perworld"
	"github.com/sealdice/perworld/perworld/types"
	"github.com/sealdice/perworld/storage"
)

type hostCallback struct {
	pw  *perworld.PerWorld
	log *zap.SugaredLogger
}

func (cb *hostCallback) OnError(err error) {
	cb.log.Warnf("host frame rejected: %v", err)
}

func (cb *hostCallback) OnPlayerEvent(evt *types.PlayerEvent) {
	cb.log.Debugf("event %s for %s", evt.Type, evt.Player.Name())
	cb.pw.Dispatch(evt)
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func main() {
	flags := pflag.NewFlagSet("perworld-ws", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "config.yaml", "config file, empty for defaults")
	listen := flags.String("listen", "", "override bridge.listen")
	debug := flags.Bool("debug", false, "verbose logging")
	_ = flags.Parse(os.Args[1:])

	if *configPath != "" {
		if _, err := os.Stat(*configPath); os.IsNotExist(err) {
			*configPath = ""
		}
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *debug {
		cfg.Debug = true
	}
	if *listen != "" {
		cfg.Bridge.Listen = *listen
	}

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	log := zap.S().Named("main")

	log.Infof("%s v%s, storage %s", types.APPNAME, types.VERSION, cfg.Storage.Driver)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := storage.Open(cfg.Storage)
	if err != nil {
		log.Fatalf("%v", err)
	}

	pw := perworld.New(cfg, backend, perworld.WithLogger(zap.S().Named("perworld")))
	pw.Start()

	conn := &adapters.HostAdapterWS{
		ListenAddr:  cfg.Bridge.Listen,
		ConnectURL:  cfg.Bridge.Connect,
		AccessToken: cfg.Bridge.Token,
	}
	conn.SetCallback(&hostCallback{pw: pw, log: zap.S().Named("bridge")})
	conn.Serve(ctx)

	<-ctx.Done()
	log.Info("shutting down")
	conn.Close()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), time.Minute)
	defer flushCancel()
	if err := pw.OnShutdown(flushCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
