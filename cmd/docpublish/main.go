package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docpublish/cmd/docpublish/commands"
	"git.home.luguber.info/inful/docpublish/internal/foundation/errors"
	"git.home.luguber.info/inful/docpublish/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli := &commands.CLI{}
	global := &commands.Global{Ctx: ctx}
	parser := kong.Parse(cli,
		kong.Name("docpublish"),
		kong.Description("Publish versioned documentation from git tags to an output branch."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)

	err := parser.Run(cli)
	if err == nil {
		return
	}
	var exitErr *commands.ExitError
	if stderrors.As(err, &exitErr) {
		_, _ = fmt.Fprintln(os.Stderr, exitErr.Error())
		stop()
		os.Exit(exitErr.Code)
	}
	stop()
	errors.NewCLIErrorAdapter(cli.Verbose, global.Logger).HandleError(err)
}
