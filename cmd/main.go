// Command bvsim is the thin CLI wrapper around internal/app.Service: a
// single-shot process that loads configuration, runs one of the three
// entry points, and prints its JSON result, plus an optional "serve" mode
// that exposes /metrics and /healthz for long-running deployments.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/bvsim/internal/adapters/montecarlo"
	app "github.com/okian/bvsim/internal/app"
	"github.com/okian/bvsim/internal/attribution"
	"github.com/okian/bvsim/internal/config"
	"github.com/okian/bvsim/internal/domain/rally"
	"github.com/okian/bvsim/internal/domain/teamstats"
	"github.com/okian/bvsim/pkg/logger"
	"github.com/okian/bvsim/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		logger.Get().Warn(ctx, "invalid log_format; falling back to text",
			logger.String("log_format", cfg.LogFormat), logger.Error(err))
	}

	var runErr error
	switch os.Args[1] {
	case "simulate":
		runErr = runSimulate(ctx, cfg, os.Args[2:])
	case "attribute":
		runErr = runAttribute(ctx, cfg, os.Args[2:])
	case "rally":
		runErr = runRally(ctx, cfg, os.Args[2:])
	case "serve":
		runErr = runServe(ctx, cfg)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		os.Stderr.WriteString(runErr.Error() + "\n")
		os.Exit(1)
	}
}

func usage() {
	os.Stderr.WriteString("usage: bvsim <simulate|attribute|rally|serve> [flags]\n")
}

// teamFlags binds a pair of team-stats JSON file flags shared by every
// subcommand; an empty path falls back to teamstats.Default().
func teamFlags(fs *flag.FlagSet) (teamA, teamB *string) {
	teamA = fs.String("team-a", "", "path to team A stats JSON (defaults to the equal-teams baseline)")
	teamB = fs.String("team-b", "", "path to team B stats JSON (defaults to the equal-teams baseline)")
	return
}

func loadTeam(path string) (teamstats.Stats, error) {
	if path == "" {
		return teamstats.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return teamstats.Stats{}, fmt.Errorf("read %s: %w", path, err)
	}
	var s teamstats.Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return teamstats.Stats{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return teamstats.Stats{}, err
	}
	return s, nil
}

func newService(cfg *config.Config) *app.Service {
	return app.New(app.WithConfig(cfg), app.WithLogger(logger.Get()))
}

func runSimulate(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	teamAPath, teamBPath := teamFlags(fs)
	rallies := fs.Int("rallies", 10000, "number of rallies to simulate")
	seed := fs.Uint64("seed", 1, "master RNG seed")
	servingA := fs.Bool("serving-a", true, "team A serves first")
	streak := fs.Int("momentum-streak", 0, "serve-streak length that triggers the ace boost (0 disables momentum)")
	boost := fs.Float64("momentum-boost", 0, "additive ace-probability boost once the streak triggers")
	if err := fs.Parse(args); err != nil {
		return err
	}

	teamA, err := loadTeam(*teamAPath)
	if err != nil {
		return err
	}
	teamB, err := loadTeam(*teamBPath)
	if err != nil {
		return err
	}

	serving := rally.TeamA
	if !*servingA {
		serving = rally.TeamB
	}

	req := app.SimulateRequest{
		TeamA:      teamA,
		TeamB:      teamB,
		Serving:    serving,
		NumRallies: *rallies,
		Seed:       *seed,
	}
	if *streak > 0 {
		req.Momentum = &montecarlo.MomentumConfig{Streak: *streak, Boost: *boost}
	}

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	result, err := svc.Simulate(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runAttribute(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("attribute", flag.ExitOnError)
	teamAPath, teamBPath := teamFlags(fs)
	points := fs.Int("points", cfg.PerturbationNumPoints, "number of perturbed dataset points")
	delta := fs.Float64("delta", cfg.PerturbationDelta, "additive perturbation half-width")
	ralliesPerPoint := fs.Int("rallies-per-point", cfg.PerturbationRalliesPerPoint, "rallies simulated to label each point")
	seed := fs.Uint64("seed", 1, "master RNG seed")
	family := fs.String("family", cfg.AttributionFamily, "classifier family: gbt or logistic")
	if err := fs.Parse(args); err != nil {
		return err
	}

	teamA, err := loadTeam(*teamAPath)
	if err != nil {
		return err
	}
	teamB, err := loadTeam(*teamBPath)
	if err != nil {
		return err
	}

	acfg := attribution.DefaultConfig()
	acfg.GBT = cfg.GBTConfig()
	acfg.CVFolds = cfg.LogisticCVFolds
	acfg.LambdaGrid = cfg.LogisticLambdaGrid
	if *family == "logistic" {
		acfg.Family = attribution.Logistic
	}

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	report, err := svc.Attribute(ctx, app.AttributeRequest{
		TeamA:             teamA,
		TeamB:             teamB,
		Seed:              *seed,
		NumPoints:         *points,
		Delta:             *delta,
		RalliesPerPoint:   *ralliesPerPoint,
		AttributionConfig: acfg,
	})
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runRally(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("rally", flag.ExitOnError)
	teamAPath, teamBPath := teamFlags(fs)
	seed := fs.Uint64("seed", 1, "RNG seed")
	servingA := fs.Bool("serving-a", true, "team A serves")
	if err := fs.Parse(args); err != nil {
		return err
	}

	teamA, err := loadTeam(*teamAPath)
	if err != nil {
		return err
	}
	teamB, err := loadTeam(*teamBPath)
	if err != nil {
		return err
	}

	serving := rally.TeamA
	if !*servingA {
		serving = rally.TeamB
	}

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	outcome, err := svc.SingleRally(ctx, app.SingleRallyRequest{
		TeamA:   teamA,
		TeamB:   teamB,
		Serving: serving,
		Seed:    *seed,
	})
	if err != nil {
		return err
	}
	return printJSON(outcome)
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	svc := newService(cfg)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
