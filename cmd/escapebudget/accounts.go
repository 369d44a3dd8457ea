package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/iammattholland/escapebudget/internal/cli"
	"github.com/iammattholland/escapebudget/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"account"},
		Short:   "Manage accounts",
	}

	cmd.AddCommand(accountsListCmd())
	cmd.AddCommand(accountsAddCmd())

	return cmd
}

func accountsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			accounts, err := store.GetAccounts(ctx)
			if err != nil {
				return err
			}
			if len(accounts) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No accounts. Add one with 'escapebudget accounts add'."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tNAME\tACTIVE")
			for _, a := range accounts {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%t\n", a.ID, a.Name, a.IsActive)
			}
			return w.Flush()
		},
	}
}

func accountsAddCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			account := model.Account{
				ID:        id,
				Name:      args[0],
				IsActive:  true,
				CreatedAt: time.Now(),
			}
			if account.ID == "" {
				account.ID = uuid.NewString()
			}

			if err := store.SaveAccount(ctx, &account); err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Added account " + account.ID))
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "explicit account ID (defaults to a generated UUID)")
	return cmd
}
