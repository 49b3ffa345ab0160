package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/artifact"
	"pkt.systems/loopster/internal/logx"
	"pkt.systems/loopster/internal/transcript"
)

func newSanitizeCmd() *cobra.Command {
	var rawPath, outPath string
	cmd := &cobra.Command{
		Use:   "sanitize --raw PATH --out PATH",
		Short: "Sanitize a saved raw log into a cleaned transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			raw, err := artifact.ReadText(rawPath)
			if err != nil {
				say(out, "[loopster] sanitize: failed to read raw log: %v", err)
				return &exitError{code: 2}
			}
			if err := artifact.NewWriter(logx.Ctx(cmd.Context())).Write(outPath, transcript.Sanitize(raw)); err != nil {
				say(out, "[loopster] sanitize: failed to write cleaned log: %v", err)
				return &exitError{code: 2}
			}
			say(out, "[loopster] sanitized → %s", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&rawPath, "raw", "", "raw log to sanitize")
	cmd.Flags().StringVar(&outPath, "out", "", "cleaned log destination")
	_ = cmd.MarkFlagRequired("raw")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
