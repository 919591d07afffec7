package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"h2svg/convert"
	"h2svg/misc"
	"h2svg/state"
)

const sourceHelp = `
SOURCE:
    what to convert:
        HTML file: "[path/]page.html" (.html, .htm and .xhtml are recognized)
        zip archive: "[path/]pages.zip" - HTML files inside archive in natural order
        directory: "[path/]dir" - HTML files and zip archives under directory, recursively, in natural order

DESTINATION:
    directory for produced SVG files, current working directory when absent.
    Every element matching selector becomes separate file named after its source
    (with "-N" suffix when there are several) or by output name template.
`

const dumpHelp = `
DESTINATION:
    file to write configuration to, STDOUT when absent.

Without --default writes effective configuration: embedded defaults with values
from configuration file applied on top.
`

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:         "convert",
		Usage:        "Renders elements selected from HTML documents as SVG text",
		ArgsUsage:    "SOURCE [DESTINATION]",
		OnUsageError: usageErrorHandler,
		Action:       convert.Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "selector", Aliases: []string{"s"}, Usage: "CSS `SELECTOR` of elements to convert (overrides configuration)"},
			&cli.FloatFlag{Name: "width", Aliases: []string{"w"}, Usage: "layout `WIDTH` in px for elements without own width (overrides configuration)"},
			&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "put all output files directly into destination"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "replace existing output files instead of failing"},
		},
		CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
	}
}

func dumpConfigCommand() *cli.Command {
	return &cli.Command{
		Name:         "dumpconfig",
		Usage:        "Writes default or effective configuration (YAML)",
		ArgsUsage:    "[DESTINATION]",
		OnUsageError: usageErrorHandler,
		Action:       outputConfiguration,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "default", Usage: "write embedded defaults"},
		},
		CustomHelpTemplate: cli.CommandHelpTemplate + dumpHelp,
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "renders laid out HTML paragraphs as SVG text",
		Version:         fmt.Sprintf("%s (%s) : %s", misc.GetVersion(), runtime.Version(), misc.GetGitHash()),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log everything and collect inputs, outputs and logs into report archive"},
		},
		Commands: []*cli.Command{convertCommand(), dumpConfigCommand()},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()

	if err != nil {
		if !errWasHandled {
			fmt.Fprintf(os.Stderr, "%s: %v\n", misc.GetAppName(), err)
		}
		os.Exit(1)
	}
}
