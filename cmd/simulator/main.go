package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/signalsfoundry/leo-orbit-sim/internal/logging"
	"github.com/signalsfoundry/leo-orbit-sim/internal/observability"
	"github.com/signalsfoundry/leo-orbit-sim/internal/output"
	"github.com/signalsfoundry/leo-orbit-sim/internal/scenario"
	"github.com/signalsfoundry/leo-orbit-sim/internal/sim"
)

func main() {
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on (disabled if empty)")
	vectorDir := flag.String("vector-dir", "", "directory to write per-node endToEndDelay/hopCount CSV files (disabled if empty)")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: simulator [-metrics-addr host:port] [-vector-dir dir] <scenario.json>")
		os.Exit(2)
	}
	scenarioPath := flag.Arg(0)

	log := logging.NewFromEnv()
	ctx, log := logging.WithRunLogger(context.Background(), log)
	ctx = logging.ContextWithLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	f, err := os.Open(scenarioPath)
	if err != nil {
		log.Error(ctx, "failed to open scenario", logging.String("path", scenarioPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	sc, err := scenario.Load(f)
	f.Close()
	if err != nil {
		log.Error(ctx, "scenario-error", logging.String("error", err.Error()))
		os.Exit(1)
	}

	opts := []sim.Option{sim.WithLogger(log)}
	if *metricsAddr != "" {
		collector, err := observability.NewSimCollector(nil)
		if err != nil {
			log.Error(ctx, "failed to register metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		opts = append(opts, sim.WithMetrics(collector))

		schedCollector, err := observability.NewSchedulerCollector(nil)
		if err != nil {
			log.Error(ctx, "failed to register scheduler metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		opts = append(opts, sim.WithSchedulerMetrics(schedCollector))

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		server := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "metrics server listening", logging.String("addr", *metricsAddr))
	}

	s, err := sim.New(sc, opts...)
	if err != nil {
		log.Error(ctx, "scenario-error", logging.String("error", err.Error()))
		os.Exit(1)
	}

	s.Run(ctx)

	reports := s.Reports()
	if err := output.WriteScalarTable(os.Stdout, reports); err != nil {
		log.Error(ctx, "failed to write scalar table", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if *vectorDir != "" {
		if err := output.WriteVectorFiles(*vectorDir, reports); err != nil {
			log.Error(ctx, "failed to write vector files", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}
}
