package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"brokerctl/internal/config"
	"brokerctl/pkg/logger"
)

var Version = "(development)"

func main() {
	configPath := flag.String("c", "", "path to configuration file")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("brokerctl %s\n", Version)
		os.Exit(0)
	}

	if *configPath == "" {
		*configPath = os.Getenv("BROKERCTL_CONFIG")
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "no configuration file given (use -c or BROKERCTL_CONFIG)")
		os.Exit(1)
	}

	cfg, err := config.ReadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read configuration: %s\n", err)
		os.Exit(1)
	}

	err = logger.Configure(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %s\n", err)
		os.Exit(1)
	}

	log := logger.Get().Named("brokerctl")

	app, err := newApp(&cfg, log)
	if err != nil {
		log.Fatalf("failed to initialize: %s", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.run(ctx, flag.Args()); err != nil {
		log.Fatalf("%s", err)
	}
}
