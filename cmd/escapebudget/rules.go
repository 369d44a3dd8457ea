package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/iammattholland/escapebudget/internal/cli"
	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/rules"
	"github.com/iammattholland/escapebudget/internal/service"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage auto-rules that rename, categorize, and tag transactions",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesCreateCmd())
	cmd.AddCommand(rulesEditCmd())
	cmd.AddCommand(rulesDeleteCmd())
	cmd.AddCommand(rulesTestCmd())
	cmd.AddCommand(rulesApplyCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rules in application order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			all, err := store.GetRules(ctx)
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules defined."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ORDER\tID\tNAME\tENABLED\tCONDITIONS\tACTIONS")
			for _, r := range all {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n",
					r.Order, r.ID, r.Name, r.IsEnabled,
					summarizeConditions(r), summarizeActions(r))
			}
			return w.Flush()
		},
	}
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a rule in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			r, err := store.GetRuleByID(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Println(cli.TitleStyle.Render(r.Name))
			fmt.Printf("ID:         %s\n", r.ID)
			fmt.Printf("Order:      %d\n", r.Order)
			fmt.Printf("Enabled:    %t\n", r.IsEnabled)
			fmt.Printf("Conditions: %s\n", summarizeConditions(*r))
			fmt.Printf("Actions:    %s\n", summarizeActions(*r))
			return nil
		},
	}
}

func rulesCreateCmd() *cobra.Command {
	var (
		name          string
		payee         string
		payeeMatch    string
		caseSensitive bool
		accountID     string
		amountOp      string
		amountValue   float64
		amountMax     float64
		renameTo      string
		categoryID    string
		tagIDs        []string
		memo          string
		memoAppend    bool
		status        string
		order         int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a rule from flags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			r := model.AutoRule{
				ID:        uuid.NewString(),
				Name:      name,
				Order:     order,
				IsEnabled: true,
			}
			if payee != "" {
				r.MatchPayeeEnabled = true
				r.MatchPayeeValue = payee
				r.MatchPayeeCondition = model.PayeeCondition(payeeMatch)
				r.MatchPayeeCaseSens = caseSensitive
			}
			if accountID != "" {
				r.MatchAccountID = &accountID
			}
			if amountOp != string(model.AmountNone) && amountOp != "" {
				r.MatchAmountCondition = model.AmountCondition(amountOp)
				r.AmountValue = &amountValue
				if r.MatchAmountCondition == model.AmountBetween {
					r.AmountMax = &amountMax
				}
			}
			if renameTo != "" {
				r.ActionRenameEnabled = true
				r.ActionRenamePayee = renameTo
			}
			if categoryID != "" {
				r.ActionCategoryEnabled = true
				r.ActionCategoryID = &categoryID
			}
			r.ActionTagIDs = tagIDs
			if memo != "" {
				r.ActionMemoEnabled = true
				r.ActionMemo = memo
				r.ActionMemoAppend = memoAppend
			}
			if status != "" {
				st := model.TransactionStatus(status)
				r.ActionStatusEnabled = true
				r.ActionStatus = &st
			}

			if err := r.Validate(); err != nil {
				return common.NewUserError("invalid rule", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveRule(ctx, &r); err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Created rule " + r.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "rule name")
	cmd.Flags().StringVar(&payee, "payee", "", "payee text to match")
	cmd.Flags().StringVar(&payeeMatch, "payee-match", string(model.PayeeContains), "contains, begins_with, ends_with, or equals")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match payee case sensitively")
	cmd.Flags().StringVar(&accountID, "account", "", "restrict to one account")
	cmd.Flags().StringVar(&amountOp, "amount-op", "", "eq, gt, lt, or between")
	cmd.Flags().Float64Var(&amountValue, "amount", 0, "signed amount to compare against")
	cmd.Flags().Float64Var(&amountMax, "amount-max", 0, "upper bound for between")
	cmd.Flags().StringVar(&renameTo, "rename-to", "", "rename payee to this value")
	cmd.Flags().StringVar(&categoryID, "category", "", "set category")
	cmd.Flags().StringSliceVar(&tagIDs, "tag", nil, "add tag (repeatable)")
	cmd.Flags().StringVar(&memo, "memo", "", "set or append memo text")
	cmd.Flags().BoolVar(&memoAppend, "memo-append", false, "append memo instead of replacing")
	cmd.Flags().StringVar(&status, "status", "", "set status (uncleared or cleared)")
	cmd.Flags().IntVar(&order, "order", 0, "application order, lowest first")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func rulesEditCmd() *cobra.Command {
	var (
		name     string
		order    int
		enabled  bool
		payee    string
		renameTo string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Update fields on an existing rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			r, err := store.GetRuleByID(ctx, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("name") {
				r.Name = name
			}
			if cmd.Flags().Changed("order") {
				r.Order = order
			}
			if cmd.Flags().Changed("enabled") {
				r.IsEnabled = enabled
			}
			if cmd.Flags().Changed("payee") {
				r.MatchPayeeEnabled = payee != ""
				r.MatchPayeeValue = payee
				if r.MatchPayeeCondition == "" {
					r.MatchPayeeCondition = model.PayeeContains
				}
			}
			if cmd.Flags().Changed("rename-to") {
				r.ActionRenameEnabled = renameTo != ""
				r.ActionRenamePayee = renameTo
			}

			if err := r.Validate(); err != nil {
				return common.NewUserError("invalid rule", err)
			}
			if err := store.SaveRule(ctx, r); err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Updated rule " + r.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "new rule name")
	cmd.Flags().IntVar(&order, "order", 0, "new application order")
	cmd.Flags().BoolVar(&enabled, "enabled", true, "enable or disable the rule")
	cmd.Flags().StringVar(&payee, "payee", "", "new payee match text (empty clears the condition)")
	cmd.Flags().StringVar(&renameTo, "rename-to", "", "new rename target (empty clears the action)")

	return cmd
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println(cli.SuccessStyle.Render("Deleted rule " + args[0]))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "test <id>",
		Short: "Preview which transactions a rule would match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			r, err := store.GetRuleByID(ctx, args[0])
			if err != nil {
				return err
			}

			engine := rules.NewEngine(store)
			matched, err := engine.PreviewMatches(ctx, r, limit)
			if err != nil {
				return err
			}
			if len(matched) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No matching transactions."))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "DATE\tPAYEE\tAMOUNT\tACCOUNT")
			for _, txn := range matched {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n",
					txn.Date.Format("2006-01-02"), txn.Payee, txn.Amount, txn.AccountID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum matches to show")
	return cmd
}

func rulesApplyCmd() *cobra.Command {
	var (
		days   int
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply all enabled rules to recent transactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ruleSet, err := store.GetRules(ctx)
			if err != nil {
				return err
			}
			if len(ruleSet) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No rules to apply."))
				return nil
			}

			start := time.Now().AddDate(0, 0, -days)
			txns, err := store.GetTransactions(ctx, service.TransactionFilter{StartDate: &start})
			if err != nil {
				return err
			}

			engine := rules.NewEngine(store)
			bar := progressbar.NewOptions(len(txns),
				progressbar.OptionSetDescription("Applying rules"),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)

			changed := 0
			for i := range txns {
				txn := txns[i]
				events, err := engine.Apply(ctx, ruleSet, &txn)
				if err != nil {
					return err
				}
				_ = bar.Add(1)
				if len(events) == 0 {
					continue
				}
				changed++
				if dryRun {
					continue
				}
				if err := store.SaveTransaction(ctx, &txn); err != nil {
					return fmt.Errorf("failed to save %s: %w", txn.ID, err)
				}
			}
			_ = bar.Finish()

			verb := "changed"
			if dryRun {
				verb = "would change"
			}
			fmt.Printf("%s %s %d of %d transaction(s)\n",
				cli.SuccessStyle.Render("Rules"), verb, changed, len(txns))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "how far back to apply")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report changes without saving")
	return cmd
}

func summarizeConditions(r model.AutoRule) string {
	var parts []string
	if r.MatchPayeeEnabled {
		parts = append(parts, fmt.Sprintf("payee %s %q", r.MatchPayeeCondition, r.MatchPayeeValue))
	}
	if r.MatchAccountID != nil {
		parts = append(parts, "account "+*r.MatchAccountID)
	}
	if r.MatchAmountCondition != "" && r.MatchAmountCondition != model.AmountNone && r.AmountValue != nil {
		if r.MatchAmountCondition == model.AmountBetween && r.AmountMax != nil {
			parts = append(parts, fmt.Sprintf("amount between %.2f and %.2f", *r.AmountValue, *r.AmountMax))
		} else {
			parts = append(parts, fmt.Sprintf("amount %s %.2f", r.MatchAmountCondition, *r.AmountValue))
		}
	}
	return strings.Join(parts, ", ")
}

func summarizeActions(r model.AutoRule) string {
	var parts []string
	if r.ActionRenameEnabled {
		parts = append(parts, "rename to "+r.ActionRenamePayee)
	}
	if r.ActionCategoryEnabled && r.ActionCategoryID != nil {
		parts = append(parts, "categorize "+*r.ActionCategoryID)
	}
	if len(r.ActionTagIDs) > 0 {
		parts = append(parts, fmt.Sprintf("tag %s", strings.Join(r.ActionTagIDs, "+")))
	}
	if r.ActionMemoEnabled {
		if r.ActionMemoAppend {
			parts = append(parts, "append memo")
		} else {
			parts = append(parts, "set memo")
		}
	}
	if r.ActionStatusEnabled && r.ActionStatus != nil {
		parts = append(parts, "status "+string(*r.ActionStatus))
	}
	return strings.Join(parts, ", ")
}
