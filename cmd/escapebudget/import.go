package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/iammattholland/escapebudget/internal/cli"
	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/ofx"
	"github.com/iammattholland/escapebudget/internal/rules"
	"github.com/iammattholland/escapebudget/internal/service"
)

func importCmd() *cobra.Command {
	var (
		accountID string
		noRules   bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.ofx> [file.qfx ...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import bank and credit card transactions from OFX or QFX downloads.
Duplicates already in the database are skipped, and enabled auto-rules run
over every newly imported transaction.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			parser := ofx.NewParser()
			var parsed []model.Transaction
			for _, path := range args {
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				txns, parseErr := parser.ParseFile(ctx, f)
				_ = f.Close()
				if parseErr != nil {
					return fmt.Errorf("failed to parse %s: %w", path, parseErr)
				}
				parsed = append(parsed, txns...)
			}
			if len(parsed) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transactions found in input."))
				return nil
			}

			if accountID != "" {
				for i := range parsed {
					parsed[i].AccountID = accountID
					parsed[i].Hash = parsed[i].GenerateHash()
				}
			}

			existing, err := store.GetTransactions(ctx, service.TransactionFilter{})
			if err != nil {
				return fmt.Errorf("failed to fetch existing transactions: %w", err)
			}
			seen := make(map[string]bool, len(existing))
			for _, txn := range existing {
				seen[txn.Hash] = true
			}

			var ruleSet []model.AutoRule
			if !noRules {
				ruleSet, err = store.GetRules(ctx)
				if err != nil {
					return err
				}
			}
			engine := rules.NewEngine(store)

			bar := progressbar.NewOptions(len(parsed),
				progressbar.OptionSetDescription("Importing"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			var fresh []model.Transaction
			skipped := 0
			for i := range parsed {
				txn := parsed[i]
				_ = bar.Add(1)
				if seen[txn.Hash] {
					skipped++
					continue
				}
				seen[txn.Hash] = true
				if len(ruleSet) > 0 {
					if _, err := engine.Apply(ctx, ruleSet, &txn); err != nil {
						return err
					}
				}
				fresh = append(fresh, txn)
			}
			_ = bar.Finish()

			if len(fresh) > 0 {
				if err := store.SaveTransactions(ctx, fresh); err != nil {
					return fmt.Errorf("failed to save transactions: %w", err)
				}
			}

			fmt.Printf("%s %d transaction(s), skipped %d duplicate(s)\n",
				cli.SuccessStyle.Render("Imported"), len(fresh), skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "override the account ID for every imported transaction")
	cmd.Flags().BoolVar(&noRules, "no-rules", false, "skip auto-rule application")
	return cmd
}
