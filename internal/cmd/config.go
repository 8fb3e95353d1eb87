package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
	"github.com/asum-cli/asum/internal/pkg/security"
)

// newConfigCmd creates the config command and its subcommands.
func newConfigCmd(flags *globalFlags, d *deps) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect asum configuration",
		Long: `Inspect the configuration asum would use in this directory.

Files are searched in ./asum.toml, then ~/.asum/asum.toml. Values from the
local file win field by field; ASUM_* environment variables and flags win
over both.`,
	}

	configCmd.AddCommand(newConfigShowCmd(flags, d))
	configCmd.AddCommand(newConfigPathCmd(d))

	return configCmd
}

func newConfigShowCmd(flags *globalFlags, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Long: `Print the merged configuration as TOML.

API keys are masked, showing only the last 4 characters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := d.newResolver()
			if err != nil {
				return err
			}
			defer startLogging(cmd, flags, resolver)()

			if err := applyOverrides(cmd, flags, resolver); err != nil {
				return err
			}
			cfg, err := flagSource{resolver: resolver, model: flags.model}.Resolve()
			if err != nil {
				return err
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

func newConfigPathCmd(d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "List the configuration search paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := d.newResolver()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range []string{resolver.LocalPath(), resolver.HomePath()} {
				if path == "" {
					continue
				}
				state := "missing"
				if _, err := os.Stat(path); err == nil {
					state = "found"
				}
				fmt.Fprintf(out, "%s (%s)\n", path, state)
			}
			return nil
		},
	}
}

// printConfig writes cfg as TOML with secrets masked.
func printConfig(out io.Writer, cfg *config.Config) error {
	masked := *cfg
	if masked.Gemini.APIKey != "" {
		masked.Gemini.APIKey = security.MaskAPIKey(masked.Gemini.APIKey)
	}
	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = security.MaskAPIKey(masked.OpenAI.APIKey)
	}

	data, err := toml.Marshal(&masked)
	if err != nil {
		return errors.Wrap(err, errors.ErrFileSystemError, "failed to encode configuration")
	}

	if len(cfg.Sources) == 0 {
		fmt.Fprintln(out, "# no configuration file found, showing built-in defaults")
	}
	for _, src := range cfg.Sources {
		fmt.Fprintf(out, "# source: %s\n", src)
	}
	_, err = out.Write(data)
	return err
}
