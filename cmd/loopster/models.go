package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/llm"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List known model names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			say(out, "OpenAI models:")
			for _, name := range llm.OpenAIModels {
				say(out, "  %s", name)
			}
			say(out, "Google Gemini models:")
			for _, name := range llm.GeminiModels {
				say(out, "  %s", name)
			}
			say(out, "Testing:")
			say(out, "  fake:<anything>  canned responses (%s, default OK)", llm.FakeResponseEnv)
			return nil
		},
	}
}
