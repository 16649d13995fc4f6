package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/subcommands"

	"github.com/mmynk/receiptsplit/internal/config"
	"github.com/mmynk/receiptsplit/internal/storage/sqlite"
)

type usersCmd struct {
	dbPath string
}

func (*usersCmd) Name() string     { return "users" }
func (*usersCmd) Synopsis() string { return "list registered users" }
func (*usersCmd) Usage() string {
	return `users [-db <path>]

  Prints every registered user with their contact and payment details.
  The database defaults to DB_PATH.
`
}

func (c *usersCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", "", "SQLite database path (default: DB_PATH)")
}

func (c *usersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	dbPath := c.dbPath
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		dbPath = cfg.DBPath
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	users, err := store.ListUsers(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing users: %v\n", err)
		return subcommands.ExitFailure
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tPAYMENT\tJOINED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.DisplayName, u.Email, u.Phone, u.PaymentMethod,
			time.Unix(u.CreatedAt, 0).Format(time.DateOnly))
	}
	if err := w.Flush(); err != nil {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
