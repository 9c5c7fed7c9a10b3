package main

import "context"
import "fmt"
import "os"
import "os/signal"
import "syscall"

import "github.com/spf13/cobra"
import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"
import "github.com/neurlang/cnntrain/config"
import "github.com/neurlang/cnntrain/datasets"
import "github.com/neurlang/cnntrain/datasets/cifar10"
import "github.com/neurlang/cnntrain/device"
import "github.com/neurlang/cnntrain/learning"
import "github.com/neurlang/cnntrain/metrics"
import "github.com/neurlang/cnntrain/net/feedforward"
import "github.com/neurlang/cnntrain/parallel"
import "github.com/neurlang/cnntrain/progress"
import "github.com/neurlang/cnntrain/trainer"

var (
	configPath string
	verbose    bool
	pgo        bool
	flags      config.Config

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "train_cifar10",
	Short: "Train a CIFAR-10 classifier with resumable checkpoints",
	Long: `train_cifar10 trains a small convolutional network on CIFAR-10.

After every epoch the state is written to <checkpoint-dir>/latest_checkpoint,
and to <checkpoint-dir>/best_checkpoint when the epoch loss is the lowest so
far. Running the same command again resumes after the last completed epoch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		zc := zap.NewProductionConfig()
		level, _ := cfg.Level()
		if verbose {
			level = zap.DebugLevel
		}
		zc.Level = zap.NewAtomicLevelAt(level)
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTraining,
}

func init() {
	bindFlags(rootCmd)
}

func bindFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML configuration file")
	f.StringVar(&flags.DataDir, "data-dir", "", "directory of the CIFAR-10 dataset")
	f.StringVar(&flags.CheckpointDir, "checkpoint-dir", "", "directory of the checkpoints")
	f.StringVar(&flags.MirrorDir, "mirror-dir", "", "directory receiving a copy of every checkpoint")
	f.IntVar(&flags.BatchSize, "batch-size", 32, "mini-batch size")
	f.IntVar(&flags.Epochs, "epochs", 10, "total number of epochs")
	f.Float64Var(&flags.LearningRate, "lr", 0.001, "learning rate")
	f.IntVar(&flags.Workers, "workers", 2, "batch loading goroutines")
	f.Int64Var(&flags.Seed, "seed", 1, "seed of initialization, shuffle and augmentation")
	f.BoolVar(&flags.Download, "download", true, "download the dataset when missing")
	f.BoolVar(&flags.Metrics, "metrics", true, "record Loss/train in <checkpoint-dir>/runs/metrics.db")
	f.IntVar(&flags.Threads, "threads", 0, "kernel goroutines, 0 uses every core")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	f.BoolVar(&pgo, "pgo", false, "collect a CPU profile into default.pgo")
}

// loadConfig reads the configuration file, applies the environment and then
// the command line flags, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies the flags given on the command line over cfg.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("data-dir", func() { cfg.DataDir = flags.DataDir })
	set("checkpoint-dir", func() { cfg.CheckpointDir = flags.CheckpointDir })
	set("mirror-dir", func() { cfg.MirrorDir = flags.MirrorDir })
	set("batch-size", func() { cfg.BatchSize = flags.BatchSize })
	set("epochs", func() { cfg.Epochs = flags.Epochs })
	set("lr", func() { cfg.LearningRate = flags.LearningRate })
	set("workers", func() { cfg.Workers = flags.Workers })
	set("seed", func() { cfg.Seed = flags.Seed })
	set("download", func() { cfg.Download = flags.Download })
	set("metrics", func() { cfg.Metrics = flags.Metrics })
	set("threads", func() { cfg.Threads = flags.Threads })
}

func runTraining(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if pgo {
		stopProfile, err := startProfile("default.pgo")
		if err != nil {
			return err
		}
		defer stopProfile()
	}

	dev := device.Select(cfg.Threads)
	parallel.SetThreads(dev.Threads)
	logger.Info("device", zap.Stringer("device", dev))

	downloaded, err := cifar10.Ensure(ctx, cfg.DataDir, cfg.Download)
	if err != nil {
		return err
	}
	if downloaded {
		logger.Info("dataset downloaded", zap.String("dir", cfg.DataDir))
	}
	train, err := cifar10.Train(cfg.DataDir)
	if err != nil {
		return err
	}
	train.Augment = true
	loader := &datasets.Loader{
		Samples:   train,
		BatchSize: cfg.BatchSize,
		Workers:   cfg.Workers,
		Shuffle:   true,
		Seed:      cfg.Seed,
	}

	net := feedforward.SimpleNet(cfg.Seed)
	adam, err := learning.NewAdam(net.Parameters(), learning.DefaultHyperParameters(cfg.LearningRate))
	if err != nil {
		return err
	}
	logger.Info("model", zap.Int("layers", net.LenLayers()), zap.Int("parameters", net.Len()))

	store, err := checkpoint.NewDirStore(cfg.CheckpointDir)
	if err != nil {
		return err
	}
	if n, err := store.RemoveStale(); err != nil {
		logger.Warn("stale temporary files not removed", zap.Error(err))
	} else if n > 0 {
		logger.Debug("removed stale temporary files", zap.Int("count", n))
	}

	observers := trainer.Observers{progress.New(os.Stderr, cfg.Epochs)}
	if cfg.MirrorDir != "" {
		mstore, err := checkpoint.NewDirStore(cfg.MirrorDir)
		if err != nil {
			return err
		}
		if err := seed(ctx, store, mstore, logger); err != nil {
			return err
		}
		observers = append(observers, mirror{
			ctx:    context.WithoutCancel(ctx),
			src:    store,
			dst:    mstore,
			logger: logger,
		})
	}
	if cfg.Metrics {
		mlog, err := metrics.Open(ctx, cfg.MetricsPath())
		if err != nil {
			return err
		}
		defer mlog.Close()
		logger.Info("metric log", zap.String("path", cfg.MetricsPath()), zap.String("run", mlog.RunID()))
		observers = append(observers, metrics.Observer{Log: mlog, Logger: logger})
	}

	ctrl := &trainer.Controller{
		Store:     store,
		Model:     net,
		Optimizer: adam,
		Criterion: learning.CrossEntropy{},
		Data:      loader,
		Epochs:    cfg.Epochs,
		Logger:    logger,
		Observer:  observers,
	}
	res, err := ctrl.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("training interrupted", zap.Int("epochs_run", res.Epochs))
		}
		return err
	}
	logger.Info("Training completed!",
		zap.Int("epochs_run", res.Epochs),
		zap.Float64("best_loss", res.BestLoss))
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if logger != nil {
			logger.Error("training failed", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
