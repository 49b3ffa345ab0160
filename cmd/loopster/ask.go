package main

import (
	"errors"

	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/llm"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		system string
		prompt string
		files  []string
		model  modelFlags
	)
	cmd := &cobra.Command{
		Use:   "ask --system TEXT [--prompt TEXT] [--file PATH]...",
		Short: "Send a prompt and attached files to the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if system == "" {
				return errors.New("ask: --system is required")
			}
			cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			attachments, err := llm.ReadFiles(files...)
			if err != nil {
				say(out, "[loopster] ask: %v", err)
				return &exitError{code: 2}
			}
			client, name, err := model.client(cfg)
			if err != nil {
				say(out, "[loopster] ask: LLM error: %v", err)
				return &exitError{code: 2}
			}
			answer, err := llm.Ask(cmd.Context(), client, llm.AskRequest{Model: name, System: system, Prompt: prompt, Files: attachments})
			if err != nil {
				say(out, "[loopster] ask: LLM error: %v", err)
				return &exitError{code: 2}
			}
			say(out, "%s", answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().StringVar(&prompt, "prompt", "", "user prompt placed before the attached files")
	cmd.Flags().StringArrayVar(&files, "file", nil, "file to attach (repeatable)")
	model.register(cmd)
	return cmd
}
