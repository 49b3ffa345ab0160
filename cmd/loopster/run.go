package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/appconfig"
	"pkt.systems/loopster/internal/artifact"
	"pkt.systems/loopster/internal/diffview"
	"pkt.systems/loopster/internal/llm"
	"pkt.systems/loopster/internal/logx"
)

type runFlags struct {
	command     string
	toolConfig  string
	logOut      string
	summaryOut  string
	analysisOut string
	updatedOut  string
	apply       bool
	yes         bool
	noColor     bool
	timeout     float64
	noMirror    bool
	model       modelFlags
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run --cmd CMD --tool-config PATH",
		Short: "Capture a session, review it against the assistant config and propose an update",
		Long: "Capture a session, summarize it, decide whether the assistant config needs a\n" +
			"project-agnostic change, show the proposed diff and optionally apply it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if flags.toolConfig == "" {
				flags.toolConfig = cfg.ToolConfigPath
			}
			if flags.command == "" {
				return errors.New("run: --cmd is required")
			}
			if flags.toolConfig == "" {
				return errors.New("run: --tool-config is required (or set tool_config_path)")
			}
			return runPipeline(cmd, cfg, &flags)
		},
	}
	cmd.Flags().StringVar(&flags.command, "cmd", "", "command to capture")
	cmd.Flags().StringVar(&flags.toolConfig, "tool-config", "", "assistant config file to review (defaults to tool_config_path)")
	cmd.Flags().StringVar(&flags.logOut, "log-out", "", "cleaned session log path (log_dir or a temp file when empty)")
	cmd.Flags().StringVar(&flags.summaryOut, "summary-out", "", "save the summary here instead of printing it")
	cmd.Flags().StringVar(&flags.analysisOut, "analysis-out", "", "save the review here")
	cmd.Flags().StringVar(&flags.updatedOut, "updated-out", "", "save the proposed config here")
	cmd.Flags().BoolVar(&flags.apply, "apply", false, "write the proposed config over --tool-config")
	cmd.Flags().BoolVar(&flags.yes, "yes", false, "apply without asking for confirmation")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "disable colored diff output")
	cmd.Flags().Float64Var(&flags.timeout, "timeout", 0, "capture timeout in seconds")
	cmd.Flags().BoolVar(&flags.noMirror, "no-mirror", false, "do not mirror child output to this terminal")
	flags.model.register(cmd)
	return cmd
}

func runPipeline(cmd *cobra.Command, cfg appconfig.Config, flags *runFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	writer := artifact.NewWriter(logx.Ctx(ctx))

	original, err := artifact.ReadText(flags.toolConfig)
	if err != nil {
		say(out, "[loopster] run: failed to read tool config: %v", err)
		return &exitError{code: 2}
	}

	logPath := flags.logOut
	if logPath == "" {
		if logPath, err = autoLogPath(cfg.LogDir); err != nil {
			return err
		}
	}
	req := captureRequest(cfg, flags.command, logPath)
	if cmd.Flags().Changed("timeout") {
		req.Timeout = seconds(flags.timeout)
	}
	if flags.noMirror {
		req.Mirror = false
	}
	req.Stdout = out
	say(out, "[loopster] capturing: %s\n[loopster] log: %s", flags.command, logPath)
	res, err := runCapture(ctx, req)
	if err != nil {
		return err
	}
	say(out, "[loopster] capture finished with exit code %d", processExitCode(res.ExitCode))

	session, err := artifact.ReadText(logPath)
	if err != nil {
		say(out, "[loopster] run: failed to read log: %v", err)
		return &exitError{code: 2}
	}
	client, model, err := flags.model.client(cfg)
	if err != nil {
		say(out, "[loopster] run: LLM error: %v", err)
		return &exitError{code: 2}
	}

	summary, err := llm.Summarizer{Client: client, Model: model}.Summarize(ctx, session, "text")
	if err != nil {
		say(out, "[loopster] run: LLM error: %v", err)
		return &exitError{code: 2}
	}
	if flags.summaryOut != "" {
		if err := writer.Write(flags.summaryOut, summary); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		say(out, "[loopster] summary saved → %s", flags.summaryOut)
	} else {
		say(out, "Summary:\n%s", summary)
	}

	name := filepath.Base(flags.toolConfig)
	review, decision, err := llm.Review(ctx, client, model, summary, original, name)
	if err != nil {
		say(out, "[loopster] run: LLM error: %v", err)
		return &exitError{code: 2}
	}
	say(out, "[loopster] %s", diffview.Preview(review, diffview.Width(out, 80)-len("[loopster] ")))
	say(out, "Analysis:\n%s", review)
	if flags.analysisOut != "" {
		if err := writer.Write(flags.analysisOut, review); err != nil {
			return fmt.Errorf("write analysis: %w", err)
		}
		say(out, "[loopster] analysis saved → %s", flags.analysisOut)
	}

	updated := original
	if decision == llm.DecisionChange {
		updated, err = llm.Update(ctx, client, model, review, original, name)
		if err != nil {
			say(out, "[loopster] run: LLM error: %v", err)
			return &exitError{code: 2}
		}
	}
	if flags.updatedOut != "" {
		if err := writer.Write(flags.updatedOut, updated); err != nil {
			return fmt.Errorf("write updated config: %w", err)
		}
		say(out, "[loopster] updated config saved → %s", flags.updatedOut)
	}

	diff, err := diffview.Unified(original, updated, "a/"+name, "b/"+name)
	if err != nil {
		return fmt.Errorf("diff: %w", err)
	}
	if diff == "" {
		say(out, "Diff: (no changes)")
		return nil
	}
	color := !flags.noColor && diffview.ShouldColor(cfg.Output.Color, out)
	say(out, "Diff:\n%s", strings.TrimSuffix(diffview.Colorize(diff, color), "\n"))

	if !flags.apply {
		return nil
	}
	if found := llm.ProjectSpecific(updated); len(found) > 0 {
		say(out, "[loopster] apply aborted: detected project-specific details in the proposed config: %s", strings.Join(found, ", "))
		return nil
	}
	if !flags.yes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Apply changes to %s? [y/N] ", flags.toolConfig)) {
		say(out, "[loopster] apply skipped")
		return nil
	}
	if err := applyConfig(writer, flags.toolConfig, updated); err != nil {
		return err
	}
	say(out, "[loopster] analysis applied to %s", flags.toolConfig)
	return nil
}

// applyConfig replaces path with content under an advisory lock and keeps
// the original file mode.
func applyConfig(writer *artifact.Writer, path, content string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := writer.Write(path, content); err != nil {
		return fmt.Errorf("apply config: %w", err)
	}
	return os.Chmod(path, info.Mode().Perm())
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
