// Command attrstore inspects and edits a repository attribute store.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/attrstore/internal/cli"
	"github.com/roach88/attrstore/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "attrstore: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

func run() error {
	// Commands build their own logger from the config; this one covers
	// anything logged before that.
	logger, err := logging.New(logging.Options{Level: os.Getenv("ATTRSTORE_LOG")})
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "invalid ATTRSTORE_LOG", err)
	}
	slog.SetDefault(logger)

	return cli.NewRootCommand().Execute()
}
