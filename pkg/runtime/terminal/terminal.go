package terminal

import (
	"io"
	"os"

	"github.com/de-tools/epi-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/epi-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/epi-atlas/pkg/services/projection"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	service *projection.Service
	output  *commands.Output
	writer  io.Writer
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Service *projection.Service
	Output  io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		service: opts.Service,
		output:  &commands.Output{Reporter: export.NewReporter(opts.Output)},
		writer:  opts.Output,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// SetArgs overrides os.Args, mostly for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "epi",
		Short:         "Epidemic projection tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.writer)

	cmd.PersistentFlags().StringVarP(&cli.output.Format, "output", "o", commands.FormatText,
		"Output format (text or json)")
	cmd.PersistentFlags().IntVar(&cli.output.Every, "every", 10,
		"Print every n-th day in text output")

	cmd.AddCommand(commands.NewSIRCmd(cli.service, cli.output))
	cmd.AddCommand(commands.NewSEIRCmd(cli.service, cli.output))
	cmd.AddCommand(commands.NewSEIR2Cmd(cli.service, cli.output))
	cmd.AddCommand(commands.NewBedsCmd(cli.service, cli.output))
	cmd.AddCommand(commands.NewRegionsCmd(cli.service, cli.output))

	return cmd
}
