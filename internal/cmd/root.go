// Package cmd contains the CLI command definitions for asum.
package cmd

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/asum-cli/asum/internal/app"
	"github.com/asum-cli/asum/internal/pkg/clipboard"
	"github.com/asum-cli/asum/internal/pkg/config"
	"github.com/asum-cli/asum/internal/pkg/errors"
	"github.com/asum-cli/asum/internal/pkg/git"
	"github.com/asum-cli/asum/internal/pkg/ui"
)

// deps are the collaborators a command needs. Tests replace them.
type deps struct {
	newResolver func() (*config.Resolver, error)
	gitClient   func() git.Client
	newProvider app.ProviderFactory
	newUI       func(out, errOut io.Writer, colorEnabled bool) ui.Manager
	sink        func() clipboard.Sink
	setup       func(base *config.Config) (*config.Config, error)
}

func defaultDeps() *deps {
	return &deps{
		newResolver: config.NewDefaultResolver,
		gitClient:   func() git.Client { return git.NewClient() },
		newUI: func(out, errOut io.Writer, colorEnabled bool) ui.Manager {
			return ui.NewTerminalManager(out, errOut, colorEnabled)
		},
		sink:  func() clipboard.Sink { return clipboard.NewSystem() },
		setup: ui.RunInteractiveSetup,
	}
}

// globalFlags are shared by every command.
type globalFlags struct {
	verbose     bool
	noColor     bool
	provider    string
	model       string
	timeout     int
	noClipboard bool
}

// NewRootCmd creates the root command for the asum CLI.
func NewRootCmd(version, commitHash, date string) *cobra.Command {
	return newRootCmd(version, commitHash, date, defaultDeps())
}

func newRootCmd(version, commitHash, date string, d *deps) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "asum",
		Short: "AI commit message generator for staged changes",
		Long: `asum reads your staged git changes, filters out lock files, binaries and
vendored code, and asks a local or hosted model for a Conventional Commits
message.

The message is printed to stdout and copied to the clipboard. Nothing is
committed for you.

Examples:
  asum                          # Generate with the configured provider
  asum --provider gemini        # Use Gemini for this run only
  asum --no-clipboard | git commit -F -
  asum verify                   # Check ./asum.toml`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, flags, d)
		},
	}

	rootCmd.SetVersionTemplate(`asum {{.Version}}
Commit: ` + commitHash + `
Built:  ` + date + "\n")

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&flags.noColor, "no-color", false, "Disable colored output")
	pf.StringVar(&flags.provider, "provider", "", "Provider to use for this run (ollama, gemini, openai)")
	pf.StringVar(&flags.model, "model", "", "Model of the active provider to use for this run")
	pf.IntVar(&flags.timeout, "timeout", 0, "Provider timeout in seconds")
	pf.BoolVar(&flags.noClipboard, "no-clipboard", false, "Do not copy the message to the clipboard")

	rootCmd.AddCommand(newVerifyCmd(flags, d))
	rootCmd.AddCommand(newInitCmd(flags, d))
	rootCmd.AddCommand(newConfigCmd(flags, d))

	return rootCmd
}

// ErrorText renders a failed run for stderr. With --verbose the error code,
// context and wrapped chain are included.
func ErrorText(rootCmd *cobra.Command, err error) string {
	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		return strings.TrimRight(errors.FormatErrorVerbose(err), "\n")
	}
	return errors.FormatError(err)
}

// startLogging installs the process logger for one command run. The
// returned function closes the log file.
func startLogging(cmd *cobra.Command, flags *globalFlags, resolver *config.Resolver) func() {
	closeLog, err := errors.Init(errors.Options{
		Console: cmd.ErrOrStderr(),
		NoColor: flags.noColor,
		LogDir:  resolver.LogDir(),
		RunID:   uuid.NewString(),
		Verbose: flags.verbose,
	})
	if err != nil {
		errors.Warn("file logging disabled: %v", err)
	}
	return func() { _ = closeLog() }
}

// applyOverrides maps command-line flags onto the resolver. They win over
// every file and environment value but are never written anywhere.
func applyOverrides(cmd *cobra.Command, flags *globalFlags, resolver *config.Resolver) error {
	if flags.provider != "" {
		name, ok := config.NormalizeProvider(flags.provider)
		if !ok {
			return errors.New(errors.ErrInvalidArguments, "unknown provider "+flags.provider).
				WithSuggestion("Use one of: ollama, gemini, openai")
		}
		resolver.SetOverride("general.active_provider", name)
		errors.Debug("provider overridden via flag: %s", name)
	}
	if cmd.Flags().Changed("timeout") {
		if flags.timeout <= 0 {
			return errors.New(errors.ErrInvalidArguments, "--timeout must be a positive number of seconds")
		}
		resolver.SetOverride("general.timeout_seconds", flags.timeout)
	}
	if flags.noClipboard {
		resolver.SetOverride("general.copy_to_clipboard", false)
	}
	return nil
}

// flagSource applies --model after resolution, once the active provider is known.
type flagSource struct {
	resolver *config.Resolver
	model    string
}

func (s flagSource) Resolve() (*config.Config, error) {
	cfg, err := s.resolver.Resolve()
	if err != nil || s.model == "" {
		return cfg, err
	}
	cfg.SetActiveModel(s.model)
	errors.Debug("model overridden via flag: %s", s.model)
	return cfg, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
