package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-tageval/benchmark"
	"github.com/nvr-ai/go-tageval/config"
	"github.com/nvr-ai/go-tageval/loader"
	"github.com/nvr-ai/go-tageval/logging"
	"github.com/nvr-ai/go-tageval/report"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// listFlag collects a repeatable flag; each value may also be a comma separated list.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(v string) error {
	*l = append(*l, config.SplitList(v)...)
	return nil
}

type options struct {
	configFile  string
	groundTruth string
	detectors   string
	detector    listFlag
	output      string
	workers     int
	timeout     time.Duration
	logLevel    string
	logFile     string
	showVersion bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func registerFlags(fs *flag.FlagSet, o *options) {
	defaults := config.DefaultConfig()

	fs.StringVar(&o.configFile, "config", "", "Path to a YAML or JSON configuration file")
	fs.StringVar(&o.groundTruth, "ground-truth", "", "Directory of ground truth detection files")
	fs.StringVar(&o.detectors, "detectors", "", "Directory with one sub-directory of results per detector")
	fs.Var(&o.detector, "detector", "Detector to evaluate (repeatable, default: every sub-directory)")
	fs.StringVar(&o.output, "output", defaults.OutputDir, "Output directory for the report and summaries")
	fs.IntVar(&o.workers, "workers", defaults.Workers, "Maximum number of files loaded concurrently")
	fs.DurationVar(&o.timeout, "timeout", defaults.LoadTimeout, "Dataset loading timeout (0 disables)")
	fs.StringVar(&o.logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&o.logFile, "log-file", "", "Also write logs to this rotated file")
	fs.BoolVar(&o.showVersion, "version", false, "Print the version and exit")
}

func parseArgs(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{set: map[string]bool{}}
	registerFlags(fs, o)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		o.set[f.Name] = true
	})
	return o, nil
}

// resolveConfig merges defaults, the config file, the environment and the flags, in that order.
func resolveConfig(o *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		var err error
		cfg, err = config.LoadConfig(o.configFile)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.LoadEnv(".env"); err != nil {
		return nil, err
	}

	if o.set["ground-truth"] {
		cfg.GroundTruthDir = o.groundTruth
	}
	if o.set["detectors"] {
		cfg.DetectorsDir = o.detectors
	}
	if o.set["detector"] {
		cfg.Detectors = o.detector
	}
	if o.set["output"] {
		cfg.OutputDir = o.output
	}
	if o.set["workers"] {
		cfg.Workers = o.workers
	}
	if o.set["timeout"] {
		cfg.LoadTimeout = o.timeout
	}
	if o.set["log-level"] {
		cfg.LogLevel = o.logLevel
	}
	if o.set["log-file"] {
		cfg.LogFile = o.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	o, err := parseArgs(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if o.showVersion {
		fmt.Printf("tageval %s\n", version)
		return
	}

	cfg, err := resolveConfig(o)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, cfg, logger, os.Stdout); err != nil {
		if errors.Is(err, loader.ErrNoGroundTruth) {
			logger.WithField("ground_truth_dir", cfg.GroundTruthDir).Error("no ground truth files found, nothing to evaluate")
		} else {
			logger.WithError(err).Error("comparison failed")
		}
		stop()
		os.Exit(1)
	}
}

// execute runs one comparison and writes every artifact to cfg.OutputDir.
func execute(ctx context.Context, cfg *config.Config, logger *logrus.Logger, stdout io.Writer) error {
	suite := benchmark.NewSuite(cfg, logger)

	logger.WithFields(logging.Fields{
		"ground_truth_dir": cfg.GroundTruthDir,
		"detectors_dir":    cfg.DetectorsDir,
		"workers":          cfg.Workers,
	}).Info("starting comparison")

	run, err := suite.Run(ctx)
	if err != nil {
		return err
	}

	files, err := benchmark.SaveResults(run, cfg.OutputDir)
	if err != nil {
		return errors.Wrap(err, "failed to save summaries")
	}

	rep := report.Build(run)
	reportPath := filepath.Join(cfg.OutputDir, "report.json")
	if err := rep.WriteJSON(reportPath); err != nil {
		return errors.Wrap(err, "failed to write report")
	}
	markdownPath := filepath.Join(cfg.OutputDir, "report.md")
	if err := rep.WriteMarkdown(markdownPath); err != nil {
		return err
	}

	suite.Profiler().LogReport(logger)

	printSummary(stdout, run)
	fmt.Fprintf(stdout, "\nReport:   %s\n", reportPath)
	fmt.Fprintf(stdout, "Markdown: %s\n", markdownPath)
	fmt.Fprintf(stdout, "Summary:  %s\n", files.SummaryJSON)
	fmt.Fprintf(stdout, "CSV:      %s\n", files.SummaryCSV)
	return nil
}

func printSummary(w io.Writer, run *benchmark.Run) {
	fmt.Fprintf(w, "\n=== DETECTOR COMPARISON (%d images, %v) ===\n", len(run.Images), run.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "%-20s %6s %6s %6s %6s %6s %9s %9s %9s %12s\n",
		"Detector", "GT", "Det", "TP", "Missed", "FP", "Precision", "Recall", "F1", "Avg det ms")
	for _, s := range run.Summaries {
		fmt.Fprintf(w, "%-20s %6d %6d %6d %6d %6d %9.4f %9.4f %9.4f %12.2f\n",
			s.Detector, s.TotalGroundTruth, s.TotalDetected, s.TruePositives, s.Missed, s.FalsePositives,
			s.Precision, s.Recall, s.F1, s.Timing.AvgDetectionMs)
	}
}

func init() {
	flag.Usage = func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", name)
		fmt.Fprintf(os.Stderr, "Compares fiducial tag detector outputs against ground truth.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment:\n")
		fmt.Fprintf(os.Stderr, "  %sGROUND_TRUTH_DIR, %sDETECTORS_DIR, %sDETECTORS, %sOUTPUT_DIR,\n",
			config.EnvPrefix, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
		fmt.Fprintf(os.Stderr, "  %sWORKERS, %sLOAD_TIMEOUT, %sLOG_LEVEL, %sLOG_FILE (also read from .env)\n",
			config.EnvPrefix, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -ground-truth ./data/ground_truth -detectors ./data/results\n", name)
		fmt.Fprintf(os.Stderr, "  %s -config ./tageval.yaml -detector apriltag -detector aruco\n", name)
	}
}
