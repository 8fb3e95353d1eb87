package cmd

import (
	"github.com/spf13/cobra"

	"github.com/asum-cli/asum/internal/app"
	"github.com/asum-cli/asum/internal/pkg/errors"
)

// runGenerate is the default action of the root command.
func runGenerate(cmd *cobra.Command, flags *globalFlags, d *deps) error {
	resolver, err := d.newResolver()
	if err != nil {
		return err
	}
	defer startLogging(cmd, flags, resolver)()

	if err := applyOverrides(cmd, flags, resolver); err != nil {
		return err
	}

	uiMgr := d.newUI(cmd.OutOrStdout(), cmd.ErrOrStderr(), !flags.noColor)
	service := app.NewService(
		flagSource{resolver: resolver, model: flags.model},
		d.gitClient(),
		d.newProvider,
		uiMgr,
		d.sink(),
	)

	result, err := service.Generate(commandContext(cmd))
	if err != nil {
		if errors.HasCode(err, errors.ErrInvalidFormat) {
			uiMgr.DisplayRaw(errors.RawText(err))
		}
		return err
	}

	if result.Empty {
		uiMgr.ShowInfo("Nothing to summarize: no relevant staged changes.")
		return nil
	}

	uiMgr.DisplayMessage(result.Message)
	if result.Copied {
		uiMgr.ShowSuccess("Copied to clipboard")
	}
	return nil
}
