package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asum-cli/asum/internal/app"
)

func newVerifyCmd(flags *globalFlags, d *deps) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [path]",
		Short: "Check a configuration file",
		Long: `Parse and validate a configuration file without generating anything.

Syntax errors are reported with their line and column. The default path is
asum.toml in the current directory.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := d.newResolver()
			if err != nil {
				return err
			}
			defer startLogging(cmd, flags, resolver)()

			path := resolver.LocalPath()
			if len(args) == 1 {
				path = args[0]
			}

			uiMgr := d.newUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), !flags.noColor)
			service := app.NewService(nil, nil, d.newProvider, uiMgr, nil)
			if err := service.Verify(path); err != nil {
				return err
			}
			uiMgr.ShowSuccess(fmt.Sprintf("%s syntax is valid.", path))
			return nil
		},
	}
}
