package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/kouhai"
)

func main() {
	var configPath string
	var ranksPath string
	var debug bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	flag.StringVar(&ranksPath, "ranks", "ranks.json", "path to the ranks roster")
	flag.BoolVar(&debug, "debug", false, "show debug logs")
	flag.Parse()

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if err := run(configPath, ranksPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, ranksPath string) error {
	cfg, err := kouhai.LoadConfigFile(configPath)
	if err != nil {
		return err
	}
	if err := cfg.LoadCredentials(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ranks, err := kouhai.LoadRanksFile(ranksPath, cfg.Nick)
	if err != nil {
		return err
	}

	aliases, err := kouhai.OpenAliasStore(cfg.AliasDB)
	if err != nil {
		return err
	}
	defer aliases.Close()

	transport, err := kouhai.DialTransport(cfg.Addr, cfg.NoTLS)
	if err != nil {
		return err
	}

	bot, err := kouhai.NewBot(cfg, ranks, transport, aliases, kouhai.NewHTTPLiveProbe(""))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = bot.Run(ctx)
	if errors.Is(err, kouhai.ErrTransportClosed) && ctx.Err() != nil {
		err = nil
	}
	return err
}
