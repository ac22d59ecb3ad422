// Command ledgerctl runs ledger maintenance tasks against the database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	commander.Register(&migrateCmd{}, "database")
	commander.Register(&seedCategoriesCmd{}, "database")
	commander.Register(&postRecurringCmd{}, "ledger")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
