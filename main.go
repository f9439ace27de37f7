package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lefinal/plague-server/app"
	"github.com/lefinal/plague-server/errors"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, errors.Prettify(err))
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = app.NewApp(config).Boot(ctx)
	if err != nil {
		os.Exit(1)
	}
}
