package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
	"github.com/asum-cli/asum/internal/pkg/security"
)

type initFlags struct {
	global bool
	yes    bool
	force  bool
}

func newInitCmd(flags *globalFlags, d *deps) *cobra.Command {
	opts := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a starter configuration file",
		Long: `Write a starter asum.toml. By default an interactive wizard asks for the
provider and its settings; --yes writes the built-in defaults instead.

The file is created with permissions 0600 as it may contain API keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := d.newResolver()
			if err != nil {
				return err
			}
			defer startLogging(cmd, flags, resolver)()

			path := resolver.LocalPath()
			if opts.global {
				path = resolver.HomePath()
				if path == "" {
					return errors.New(errors.ErrFileSystemError, "home directory unavailable").
						WithSuggestion("Run 'asum init' without --global to write ./asum.toml")
				}
			}

			cfg := config.Defaults()
			if !opts.yes {
				cfg, err = d.setup(cfg)
				if err != nil {
					return errors.Wrap(err, errors.ErrInvalidArguments, "setup cancelled")
				}
			}

			if err := config.WriteStarter(path, cfg, opts.force); err != nil {
				return err
			}

			uiMgr := d.newUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), !flags.noColor)
			uiMgr.ShowSuccess(fmt.Sprintf("Configuration written to %s", path))
			if cfg.General.ActiveProvider != config.ProviderOllama {
				uiMgr.ShowWarning(security.RemoteNotice)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.global, "global", false, "Write ~/.asum/asum.toml instead of ./asum.toml")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip the wizard and write the defaults")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing file")

	return cmd
}
