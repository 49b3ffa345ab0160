package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/appconfig"
	"pkt.systems/loopster/internal/logx"
	"pkt.systems/loopster/internal/version"
	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	root := newRootCmd()
	root.SetArgs(os.Args[1:])
	return execute(ctx, root)
}

// execute runs root and maps its error to a process exit code.
func execute(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	pslog.Ctx(ctx).With("err", err).Error("loopster command failed")
	return 1
}

// exitError carries a non-zero exit status whose message was already printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "loopster",
		Short:         "Capture, analyze, and summarize AI assistant CLI sessions",
		Version:       version.Current(),
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to loopster config file (default ~/.loopster/config.yaml)")

	root.AddCommand(newCaptureCmd(opts))
	root.AddCommand(newSanitizeCmd())
	root.AddCommand(newSummarizeCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newAskCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newModelsCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func (o *rootOptions) load(ctx context.Context, overrides ...string) (appconfig.Config, error) {
	cfg, err := appconfig.Load(o.configPath, overrides...)
	if err != nil {
		return cfg, err
	}
	if logger := logx.Ctx(ctx); logger != nil {
		for _, warning := range cfg.Warnings {
			logger.Warn("config warning", "detail", warning)
		}
	}
	return cfg, nil
}

func say(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}
