package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/artifact"
	"pkt.systems/loopster/internal/llm"
	"pkt.systems/loopster/internal/logx"
)

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		logPath    string
		toolConfig string
		format     string
		outPath    string
		model      modelFlags
	)
	cmd := &cobra.Command{
		Use:   "analyze --log PATH --tool-config PATH",
		Short: "Propose a project-agnostic revision of an assistant config from a session log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if format != "json" && format != "text" {
				return fmt.Errorf("unsupported --format %q; expected json or text", format)
			}
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if toolConfig == "" {
				toolConfig = cfg.ToolConfigPath
			}
			if logPath == "" || toolConfig == "" {
				say(out, "[loopster] analyze: provide --log and --tool-config to analyze (no-op)")
				return nil
			}
			session, err := artifact.ReadText(logPath)
			if err != nil {
				say(out, "[loopster] analyze: failed to read log: %v", err)
				return &exitError{code: 2}
			}
			current, err := artifact.ReadText(toolConfig)
			if err != nil {
				say(out, "[loopster] analyze: failed to read tool config: %v", err)
				return &exitError{code: 2}
			}
			client, name, err := model.client(cfg)
			if err != nil {
				say(out, "[loopster] analyze: LLM error: %v", err)
				return &exitError{code: 2}
			}
			analysis, _, err := llm.Analyzer{Client: client, Model: name}.Analyze(cmd.Context(), session, current)
			if err != nil {
				say(out, "[loopster] analyze: LLM error: %v", err)
				return &exitError{code: 2}
			}
			rendered, err := renderAnalysis(analysis, format)
			if err != nil {
				return err
			}
			if outPath == "" {
				say(out, "%s", rendered)
				return nil
			}
			if err := artifact.NewWriter(logx.Ctx(cmd.Context())).Write(outPath, rendered); err != nil {
				say(out, "[loopster] analyze: failed to write output: %v", err)
				return &exitError{code: 2}
			}
			say(out, "[loopster] analysis written → %s (%s)", outPath, filepath.Base(toolConfig))
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "cleaned session log to analyze")
	cmd.Flags().StringVar(&toolConfig, "tool-config", "", "assistant config file to revise (defaults to tool_config_path)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (json|text)")
	cmd.Flags().StringVar(&outPath, "out", "", "write the analysis to this path instead of stdout")
	model.register(cmd)
	return cmd
}

func renderAnalysis(analysis llm.Analysis, format string) (string, error) {
	if format == "json" {
		data, err := json.MarshalIndent(analysis, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "Rationale:\n" + analysis.Rationale + "\n\nUpdated config:\n" + analysis.UpdatedConfig, nil
}
