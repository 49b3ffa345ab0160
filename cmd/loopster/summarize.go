package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/artifact"
	"pkt.systems/loopster/internal/llm"
	"pkt.systems/loopster/internal/logx"
)

func newSummarizeCmd(opts *rootOptions) *cobra.Command {
	var (
		logPath string
		format  string
		outPath string
		model   modelFlags
	)
	cmd := &cobra.Command{
		Use:   "summarize --log PATH",
		Short: "Summarize a captured session log with an LLM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if logPath == "" {
				say(out, "[loopster] summarize: provide --log to generate a summary (no-op)")
				return nil
			}
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			text, err := artifact.ReadText(logPath)
			if err != nil {
				say(out, "[loopster] summarize: failed to read log: %v", err)
				return &exitError{code: 2}
			}
			client, name, err := model.client(cfg)
			if err != nil {
				say(out, "[loopster] summarize: LLM error: %v", err)
				return &exitError{code: 2}
			}
			summary, err := llm.Summarizer{Client: client, Model: name}.Summarize(cmd.Context(), text, format)
			if err != nil {
				say(out, "[loopster] summarize: LLM error: %v", err)
				return &exitError{code: 2}
			}
			if outPath == "" {
				say(out, "%s", summary)
				return nil
			}
			if err := artifact.NewWriter(logx.Ctx(cmd.Context())).Write(outPath, summary); err != nil {
				say(out, "[loopster] summarize: failed to write output: %v", err)
				return &exitError{code: 2}
			}
			say(out, "[loopster] summary written → %s", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&logPath, "log", "", "cleaned session log to summarize")
	cmd.Flags().StringVar(&format, "format", "text", fmt.Sprintf("summary format (%s)", strings.Join(llm.SummaryFormats, "|")))
	cmd.Flags().StringVar(&outPath, "out", "", "write the summary to this path instead of stdout")
	model.register(cmd)
	return cmd
}
