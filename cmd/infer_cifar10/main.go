package main

import "fmt"
import "os"
import "os/signal"
import "syscall"

import "github.com/spf13/cobra"
import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"
import "github.com/neurlang/cnntrain/datasets"
import "github.com/neurlang/cnntrain/datasets/cifar10"
import "github.com/neurlang/cnntrain/device"
import "github.com/neurlang/cnntrain/net/feedforward"
import "github.com/neurlang/cnntrain/parallel"
import "github.com/neurlang/cnntrain/trainer"

var (
	dataDir       string
	checkpointDir string
	name          string
	batchSize     int
	threads       int
	download      bool
)

var rootCmd = &cobra.Command{
	Use:          "infer_cifar10",
	Short:        "Evaluate a CIFAR-10 checkpoint on the test batch",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&dataDir, "data-dir", "", "directory of the CIFAR-10 dataset")
	f.StringVar(&checkpointDir, "checkpoint-dir", "", "directory of the checkpoints")
	f.StringVar(&name, "checkpoint", "best", "checkpoint to evaluate: best or latest")
	f.IntVar(&batchSize, "batch-size", 100, "evaluation batch size")
	f.IntVar(&threads, "threads", 0, "kernel goroutines, 0 uses every core")
	f.BoolVar(&download, "download", true, "download the dataset when missing")
	rootCmd.MarkFlagRequired("data-dir")
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

	switch name {
	case "best":
		name = checkpoint.Best
	case "latest":
		name = checkpoint.Latest
	default:
		return fmt.Errorf("unknown checkpoint %q, want best or latest", name)
	}

	dev := device.Select(threads)
	parallel.SetThreads(dev.Threads)

	store, err := checkpoint.NewDirStore(checkpointDir)
	if err != nil {
		return err
	}
	blob, ok, err := store.Read(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no %s in %s", name, checkpointDir)
	}
	state, err := checkpoint.Decode(blob)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	net := feedforward.SimpleNet(0)
	if err := net.ImportParameters(state.ModelParameters); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if _, err := cifar10.Ensure(ctx, dataDir, download); err != nil {
		return err
	}
	test, err := cifar10.Test(dataDir)
	if err != nil {
		return err
	}
	perCorrect, perTotal, err := trainer.EvaluateClasses(ctx, net,
		&datasets.Loader{Samples: test, BatchSize: batchSize, Workers: 2}, cifar10.Classes)
	if err != nil {
		return err
	}
	var correct, total int
	for i := range perTotal {
		correct += perCorrect[i]
		total += perTotal[i]
	}
	logger.Info("evaluated",
		zap.String("checkpoint", name),
		zap.Int("epoch", state.Epoch),
		zap.Float64("train_loss", state.Loss),
		zap.Int("correct", correct),
		zap.Int("total", total))
	fmt.Printf("Accuracy of the network on the %d test images: %.2f %%\n", total, trainer.Accuracy(correct, total))
	for i, label := range cifar10.Labels {
		fmt.Printf("Accuracy for class %-10s: %.1f %%\n", label, trainer.Accuracy(perCorrect[i], perTotal[i]))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
