// Command simserver runs the factory simulation engine behind an HTTP
// decision-point API and a websocket snapshot feed, driven by a scenario
// YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"factorysim/simconfig"
	"factorysim/simserver"
)

var (
	scenarioPath *string
	host         *string
	port         *string
)

// TODO: per 12-factor rules these should be overridable from env too; KISS for now.
func init() {
	scenarioPath = flag.String("scenario", "./scenario.yaml", "path to the scenario YAML file")
	host = flag.String("host", "", "the host ip")
	port = flag.String("port", "8080", "the host port")
	flag.Parse()
}

func runApp() error {
	scenario, err := simconfig.Load(*scenarioPath)
	if err != nil {
		return fmt.Errorf("loading scenario: %w", err)
	}

	cfg := scenario.ToSimConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid scenario config: %w", err)
	}

	srv, err := simserver.NewServer(cfg, scenario.Seed, scenario.Jobs, scenario.RecordHistory())
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := *host + ":" + *port
	return srv.Serve(ctx, addr)
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
	}
}
