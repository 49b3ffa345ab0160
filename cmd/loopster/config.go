package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/loopster/internal/appconfig"
	"pkt.systems/loopster/internal/logx"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	var (
		show     bool
		validate bool
		sets     []string
		savePath string
		initCfg  bool
		force    bool
		keys     bool
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show, validate, edit or initialise the loopster config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logger := logx.Ctx(cmd.Context())
			if keys {
				for _, key := range appconfig.Keys() {
					say(out, "%s", key)
				}
				return nil
			}
			if initCfg {
				path, err := appconfig.WriteDefault(opts.configPath, force)
				if err != nil {
					return err
				}
				logger.Info("config wrote", "path", path)
				say(out, "[loopster] config written → %s", path)
				return nil
			}

			cfg, err := opts.load(cmd.Context(), sets...)
			if err != nil {
				if validate {
					say(out, "[loopster] config invalid: %v", err)
					return &exitError{code: 2}
				}
				return err
			}
			if validate {
				say(out, "[loopster] config OK")
			}
			if savePath != "" {
				if err := appconfig.Save(savePath, cfg); err != nil {
					return err
				}
				logger.Info("config wrote", "path", savePath)
				say(out, "[loopster] config saved → %s", savePath)
			}
			if show || (!validate && savePath == "") {
				data, err := appconfig.Marshal(cfg)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print the effective config")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate the config and exit 2 when invalid")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "override a key, e.g. capture.timeout_seconds=30 (repeatable)")
	cmd.Flags().StringVar(&savePath, "save", "", "save the effective config to PATH (.yaml or .toml)")
	cmd.Flags().BoolVar(&initCfg, "init", false, "write the default config to --config or ~/.loopster/config.yaml")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config with --init")
	cmd.Flags().BoolVar(&keys, "keys", false, "list the keys accepted by --set")
	return cmd
}
