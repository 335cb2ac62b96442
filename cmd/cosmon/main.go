// Command cosmon runs the agent and/or collector roles described by a TOML config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/firstset/cosmon/internal/agent"
	"github.com/firstset/cosmon/internal/collector"
	"github.com/firstset/cosmon/internal/config"
	"github.com/firstset/cosmon/internal/health"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		if err := runStart(os.Args[2:]); err != nil {
			log.Printf("cosmon: %v", err)
			os.Exit(1)
		}
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cosmon start [--config PATH] [--verbose]")
}

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath(), "path or http(s):// URL to the TOML config")
	verbose := fs.Bool("verbose", false, "enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *verbose {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	password, err := config.ResolvePassword()
	if err != nil {
		return fmt.Errorf("resolving config password: %w", err)
	}
	cfg, err := config.Load(*configPath, password)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	if cfg.IsAgent() {
		networkID, err := agent.ResolveNetworkID(ctx, cfg.Agent.Rpc)
		if err != nil {
			return fmt.Errorf("resolving watched node's chain id: %w", err)
		}

		var reg *health.Registry
		if cfg.Agent.Prometheus != nil && cfg.Agent.Prometheus.Enabled {
			reg = health.New()
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := reg.Serve(ctx, cfg.Agent.Prometheus.Listen); err != nil {
					errs <- fmt.Errorf("agent health: %w", err)
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sup := agent.New(cfg.Agent, reg)
			if err := sup.Run(ctx, networkID); err != nil {
				errs <- fmt.Errorf("agent: %w", err)
			}
		}()
	}

	if cfg.IsCollector() {
		var reg *health.Registry
		if cfg.Collector.Prometheus != nil && cfg.Collector.Prometheus.Enabled {
			reg = health.New()
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := reg.Serve(ctx, cfg.Collector.Prometheus.Listen); err != nil {
					errs <- fmt.Errorf("collector health: %w", err)
				}
			}()
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			sup := collector.New(cfg.Collector, reg)
			if err := sup.Run(ctx); err != nil {
				errs <- fmt.Errorf("collector: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case err := <-errs:
		stop()
		<-done
		return err
	case <-done:
		return nil
	}
}

func defaultConfigPath() string {
	if _, err := os.Stat("sagan.toml"); err == nil {
		return "sagan.toml"
	}
	return "cosmon.toml"
}
