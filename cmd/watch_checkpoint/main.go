package main

import "context"
import "errors"
import "fmt"
import "os"
import "os/signal"
import "syscall"
import "time"

import "github.com/spf13/cobra"
import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"
import "github.com/neurlang/cnntrain/monitor"

var checkpointDir string
var debounce time.Duration

var rootCmd = &cobra.Command{
	Use:          "watch_checkpoint",
	Short:        "Follow the latest and best checkpoints of a training run",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&checkpointDir, "checkpoint-dir", "", "directory of the checkpoints")
	rootCmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "quiet time before a changed checkpoint is read")
	rootCmd.MarkFlagRequired("checkpoint-dir")
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := checkpoint.NewDirStore(checkpointDir)
	if err != nil {
		return err
	}
	w, err := monitor.New(store, logger)
	if err != nil {
		return err
	}
	defer w.Close()
	w.SetDebounce(debounce)

	logger.Info("watching", zap.String("dir", store.Dir()))
	err = w.Run(ctx, func(e monitor.Event) {
		if e.Err != nil {
			logger.Warn("unreadable checkpoint", zap.String("name", e.Name), zap.Error(e.Err))
			return
		}
		logger.Info("checkpoint",
			zap.String("name", e.Name),
			zap.Int("epoch", e.State.Epoch),
			zap.Float64("loss", e.State.Loss),
			zap.Int("model_bytes", len(e.State.ModelParameters)),
			zap.Int("optimizer_bytes", len(e.State.OptimizerState)))
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
