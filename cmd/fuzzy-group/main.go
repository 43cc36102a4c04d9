package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/drakos74/fuzzy-group/infra/config"
	"github.com/drakos74/fuzzy-group/internal/math"
	"github.com/drakos74/fuzzy-group/internal/math/ml"
	"github.com/drakos74/fuzzy-group/internal/metrics"
	"github.com/drakos74/fuzzy-group/internal/report"
	"github.com/drakos74/fuzzy-group/internal/server"
	"github.com/drakos74/fuzzy-group/internal/storage/file"
	"github.com/drakos74/fuzzy-group/internal/storage/file/json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

type options struct {
	config         string
	groups         int
	maxIteration   int
	minImprovement string
	mass           string
	init           string
	seed           int64
	vectors        string
	out            string
	serve          int
	plot           bool
	debug          bool
	paths          []string
	set            map[string]bool
}

func parse(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("fuzzy-group", flag.ContinueOnError)
	fs.StringVar(&opts.config, "config", "", "json config file")
	fs.IntVar(&opts.groups, "groups", 2, "number of groups")
	fs.IntVar(&opts.maxIteration, "max-iteration", ml.DefaultMaxIteration, "maximum number of iterations")
	fs.StringVar(&opts.minImprovement, "min-improvement", ml.DefaultMinImprovement, "objective improvement below which the model has converged")
	fs.StringVar(&opts.mass, "mass", ml.DefaultMass, "fuzziness exponent, greater than 1")
	fs.StringVar(&opts.init, "init", string(ml.RandomInit), "membership initialisation: random, seeded or kmeans")
	fs.Int64Var(&opts.seed, "seed", 0, "seed for the random initialisation")
	fs.StringVar(&opts.vectors, "vectors", "", "json file with the initial membership vectors")
	fs.StringVar(&opts.out, "out", "", "json file to export the result to")
	fs.IntVar(&opts.serve, "serve", 0, "serve the http api on the given port instead of a single run")
	fs.BoolVar(&opts.plot, "plot", false, "print the summary table and the convergence plot")
	fs.BoolVar(&opts.debug, "debug", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		opts.set[f.Name] = true
	})
	opts.paths = fs.Args()
	return opts, nil
}

// configure merges the config file with the flags given explicitly.
func configure(opts options) (ml.Config, error) {
	cfg := ml.NewConfig(opts.groups)
	if opts.config != "" {
		if err := config.Load(opts.config, &cfg); err != nil {
			return cfg, err
		}
	}
	if opts.set["groups"] {
		cfg.Groups = opts.groups
	}
	if opts.set["max-iteration"] {
		cfg = cfg.WithMaxIteration(opts.maxIteration)
	}
	if opts.set["min-improvement"] {
		d, err := math.Parse(opts.minImprovement)
		if err != nil {
			return cfg, fmt.Errorf("invalid min improvement: %s: %w", err.Error(), ml.InvalidParameterErr)
		}
		cfg.MinImprovement = d
	}
	if opts.set["mass"] {
		d, err := math.Parse(opts.mass)
		if err != nil {
			return cfg, fmt.Errorf("invalid mass: %s: %w", err.Error(), ml.InvalidParameterErr)
		}
		cfg.Mass = d
	}
	if opts.set["init"] {
		cfg = cfg.WithInit(ml.Init(opts.init))
	}
	if opts.set["seed"] {
		cfg = cfg.WithSeed(opts.seed)
	}
	if opts.vectors != "" {
		var vectors []math.Vector
		if err := json.LoadPath(opts.vectors, &vectors); err != nil {
			return cfg, err
		}
		cfg = cfg.WithInitialVectors(vectors...)
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parse(args)
	if err != nil {
		return err
	}
	if opts.debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		return err
	}

	if opts.serve > 0 {
		srv := server.NewServer("fuzzy-group", opts.serve).
			Add(server.Live()).
			Add(server.Cluster(m, opts.debug)).
			Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		return srv.Run()
	}

	if len(opts.paths) == 0 {
		return fmt.Errorf("no population files given")
	}
	cfg, err := configure(opts)
	if err != nil {
		return fmt.Errorf("could not configure run: %w", err)
	}
	population, err := file.LoadAll(ctx, opts.paths...)
	if err != nil {
		return err
	}

	trace := ml.NewTrace()
	result, err := ml.Cluster(population, cfg, m.Observe, trace.Observe)
	if err != nil {
		m.Failed()
		return err
	}
	m.Done(result)
	if _, err := fmt.Fprintln(out, report.Format(result)); err != nil {
		return err
	}
	if opts.plot {
		report.Table(out, report.Summarize(result.Groups))
		if _, err := fmt.Fprintln(out, report.Convergence(trace)); err != nil {
			return err
		}
	}
	if opts.out != "" {
		if err := json.SavePath(opts.out, result); err != nil {
			return err
		}
		log.Info().Str("path", opts.out).Msg("exported result")
	}
	return nil
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("could not form groups")
	}
}
