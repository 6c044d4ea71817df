package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	iris "github.com/barakmich/irisann"
)

var (
	population  = flag.Int("n", 40_000, "Number of templates to index")
	queries     = flag.Int("queries", 10_000, "Number of noisy re-queries")
	batch       = flag.Int("batch", 1_000, "Insert batch size")
	maxConns    = flag.Int("m", 128, "Max connections per node")
	efC         = flag.Int("efc", 128, "Construction width")
	efS         = flag.Int("efs", 128, "Search width")
	k           = flag.Int("k", 1, "K top results")
	layers      = flag.Int("layers", 0, "Layer cap, 0 for min(16, ln N)")
	parallelism = flag.Int("parallel", runtime.NumCPU(), "Worker count")
	seed        = flag.Int64("seed", 0, "Random seed, 0 for time based")
	index       = flag.String("index", "hnsw", "Index under test: hnsw, bitsample or flat")
	bases       = flag.Int("bases", 32, "Sampled bits for the bitsample index")
	precision   = flag.String("precision", "float32", "Distance precision: float32 or float16")
	verify      = flag.Bool("verify", false, "Also run an exact scan for every query")
	debug       = flag.Bool("debug", false, "Debug logging")
	cpuprofile  = flag.String("cpuprof", "", "CPU Profile file")
)

func main() {
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := buildConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("bad flags")
	}
	log.Info().
		Int("n", cfg.Population).
		Int("queries", cfg.Queries).
		Int("m", cfg.MaxConnections).
		Int("efc", cfg.EfConstruction).
		Int("layers", cfg.LayerCount()).
		Str("index", string(cfg.Index)).
		Int64("seed", cfg.Seed).
		Msg("Starting benchmark")

	h, err := iris.NewHarness(cfg, iris.WithLogger(log.Printf))
	if err != nil {
		log.Fatal().Err(err).Msg("could not set up harness")
	}
	report, err := h.Run(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
	log.Debug().
		Uint64("correct", report.Correct).
		Uint64("evaluations", report.Evaluations).
		Msg("Counters")
	fmt.Println(report)
}

func buildConfig() (iris.Config, error) {
	cfg := iris.DefaultConfig()
	cfg.Population = *population
	cfg.Queries = *queries
	cfg.BatchSize = *batch
	cfg.MaxConnections = *maxConns
	cfg.EfConstruction = *efC
	cfg.EfSearch = *efS
	cfg.K = *k
	cfg.Layers = *layers
	cfg.Workers = *parallelism
	cfg.NBasis = *bases
	cfg.VerifyExact = *verify
	if *seed != 0 {
		cfg.Seed = *seed
	} else {
		cfg.Seed = time.Now().UnixNano()
	}

	kind, err := iris.ParseIndexKind(*index)
	if err != nil {
		return cfg, err
	}
	cfg.Index = kind
	cfg.Precision, err = iris.ParsePrecision(*precision)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}
