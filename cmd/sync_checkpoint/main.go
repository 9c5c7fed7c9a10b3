package main

import "fmt"
import "os"

import "github.com/spf13/cobra"
import "go.uber.org/zap"

import "github.com/neurlang/cnntrain/checkpoint"

var (
	from    string
	to      string
	prune   bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:          "sync_checkpoint --from DIR --to DIR",
	Short:        "Copy the latest and best checkpoints between directories",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&from, "from", "", "source checkpoint directory")
	f.StringVar(&to, "to", "", "destination checkpoint directory")
	f.BoolVar(&prune, "delete", false, "remove checkpoints missing from the source")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.MarkFlagRequired("from")
	rootCmd.MarkFlagRequired("to")
}

func run(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	src, err := checkpoint.NewDirStore(from)
	if err != nil {
		return err
	}
	dst, err := checkpoint.NewDirStore(to)
	if err != nil {
		return err
	}
	if n, err := dst.RemoveStale(); err != nil {
		logger.Warn("stale temporary files not removed", zap.Error(err))
	} else if n > 0 {
		logger.Debug("removed stale temporary files", zap.Int("count", n))
	}

	res, err := checkpoint.Sync(cmd.Context(), src, dst, prune)
	if err != nil {
		return err
	}
	logger.Info("synced",
		zap.String("from", src.Dir()),
		zap.String("to", dst.Dir()),
		zap.Strings("copied", res.Copied),
		zap.Strings("unchanged", res.Unchanged),
		zap.Strings("deleted", res.Deleted))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
