package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iammattholland/escapebudget/internal/cli"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			// initStorage already runs migrations; this command exists so a
			// fresh database can be prepared explicitly.
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.GetTransactionCount(ctx)
			if err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Database ready (%d transaction(s)).", count)))
			return nil
		},
	}
}
