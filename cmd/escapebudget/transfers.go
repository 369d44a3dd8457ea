package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iammattholland/escapebudget/internal/cli"
	"github.com/iammattholland/escapebudget/internal/common"
	"github.com/iammattholland/escapebudget/internal/model"
	"github.com/iammattholland/escapebudget/internal/service"
	"github.com/iammattholland/escapebudget/internal/transfer"
	"github.com/iammattholland/escapebudget/internal/undo"
)

func transfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transfers",
		Aliases: []string{"transfer"},
		Short:   "Detect, review, and manage transfers between accounts",
		Long: `Detect likely transfers between your own accounts by matching
opposite-amount transactions, review suggestions interactively, and link or
unlink transfer pairs.`,
	}

	cmd.AddCommand(transfersDetectCmd())
	cmd.AddCommand(transfersInboxCmd())
	cmd.AddCommand(transfersReviewCmd())
	cmd.AddCommand(transfersLinkCmd())
	cmd.AddCommand(transfersUnlinkCmd())
	cmd.AddCommand(transfersDismissCmd())
	cmd.AddCommand(transfersMarkCmd())
	cmd.AddCommand(transfersConvertCmd())

	return cmd
}

func transfersDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect",
		Short: "List scored transfer suggestions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggestions, _, err := computeSuggestions(ctx, store)
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				fmt.Println(cli.SubtleStyle.Render("No transfer suggestions found."))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render("Transfer suggestions"))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "BASE\tMATCH\tAMOUNT\tDAYS APART\tSCORE")
			for _, s := range suggestions {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					s.BaseID, s.MatchID,
					cli.AmountStyle.Render(fmt.Sprintf("%.2f", s.Amount)),
					s.DaysApart, cli.FormatScore(s.Score))
			}
			return w.Flush()
		},
	}
}

func transfersInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "List unmatched transfers awaiting review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			showDismissed, _ := cmd.Flags().GetBool("all")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cfg := matchConfig()
			start := time.Now().AddDate(0, 0, -cfg.LookbackDays)
			unmatched, err := store.GetTransactions(ctx, service.TransactionFilter{
				StartDate:     &start,
				UnmatchedOnly: true,
			})
			if err != nil {
				return fmt.Errorf("failed to fetch inbox: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tDATE\tPAYEE\tAMOUNT\tACCOUNT")
			shown := 0
			for _, txn := range unmatched {
				if txn.TransferInboxDismissed && !showDismissed {
					continue
				}
				shown++
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n",
					txn.ID, txn.Date.Format("2006-01-02"), txn.Payee, txn.Amount, txn.AccountID)
			}
			if shown == 0 {
				fmt.Println(cli.SubtleStyle.Render("Transfer inbox is empty."))
				return nil
			}
			return w.Flush()
		},
	}
	cmd.Flags().Bool("all", false, "include dismissed entries")
	return cmd
}

func transfersReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Interactively confirm or reject transfer suggestions",
		Long: `Walk through scored transfer suggestions one at a time.

  y  link the pair (undoable within the session)
  n  reject the suggestion and demote the learned pattern
  u  undo the last link
  q  quit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			suggestions, byID, err := computeSuggestions(ctx, store)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println(cli.SubtleStyle.Render("Nothing to review."))
				return nil
			}

			linked, rejected, err := runReviewLoop(ctx, store, cli.NewReader(os.Stdin), suggestions, byID)
			if err != nil {
				return err
			}

			fmt.Printf("%s linked, %s rejected\n",
				cli.SuccessStyle.Render(fmt.Sprintf("%d", linked)),
				cli.ErrorStyle.Render(fmt.Sprintf("%d", rejected)))
			return nil
		},
	}
}

// runReviewLoop walks the suggestions one prompt at a time. Undoing a link
// rewinds to the suggestion that link belonged to, so an undone pair can be
// re-confirmed in the same pass.
func runReviewLoop(ctx context.Context, store service.Storage, reader *cli.Reader, suggestions []model.TransferSuggestion, byID map[string]model.Transaction) (linked, rejected int, err error) {
	learner := transfer.NewLearner(store)
	linker := transfer.NewLinker(store, learner)
	manager := undo.NewManager()

	var linkedAt []int // indices of suggestions linked this pass, undo order
	for i := 0; i < len(suggestions); i++ {
		s := suggestions[i]
		base, match := byID[s.BaseID], byID[s.MatchID]
		printSuggestion(s, base, match)

		answer, err := reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, cli.ErrInputCancelled) || errors.Is(err, io.EOF) {
				break
			}
			return linked, rejected, err
		}

		switch answer {
		case "y", "Y":
			cmd := undo.NewLinkTransferCommand(store, linker, s.BaseID, s.MatchID, true)
			if err := manager.Execute(ctx, cmd); err != nil {
				if common.IsPrecondition(err) {
					fmt.Println(cli.WarningStyle.Render(err.Error()))
					continue
				}
				return linked, rejected, err
			}
			linked++
			linkedAt = append(linkedAt, i)
			fmt.Println(cli.SuccessStyle.Render("Linked."))
		case "n", "N":
			debit, credit := base, match
			if err := learner.LearnFromRejection(ctx, debit, credit, true); err != nil {
				return linked, rejected, err
			}
			rejected++
			fmt.Println(cli.ErrorStyle.Render("Rejected."))
		case "u", "U":
			if err := manager.Undo(ctx); err != nil {
				fmt.Println(cli.WarningStyle.Render(err.Error()))
				continue
			}
			linked--
			fmt.Println(cli.SuccessStyle.Render("Undone."))
			i = linkedAt[len(linkedAt)-1] - 1
			linkedAt = linkedAt[:len(linkedAt)-1]
		case "q", "Q":
			i = len(suggestions)
		default:
			fmt.Println(cli.SubtleStyle.Render("Please answer y, n, u, or q."))
			i--
		}
	}
	return linked, rejected, nil
}

func transfersLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link <base-id> <match-id>",
		Short: "Manually link two transactions as a transfer pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			linker := transfer.NewLinker(store, transfer.NewLearner(store))
			events, err := linker.Link(ctx, args[0], args[1], false)
			if err != nil {
				if common.IsPrecondition(err) {
					return common.NewUserError("cannot link these transactions", err)
				}
				return err
			}

			for _, event := range events {
				fmt.Println(cli.SuccessStyle.Render(event.Detail))
			}
			return nil
		},
	}
}

func transfersUnlinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <id>",
		Short: "Break a linked transfer pair back into unmatched legs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			linker := transfer.NewLinker(store, transfer.NewLearner(store))
			events, err := linker.Unlink(ctx, args[0])
			if err != nil {
				return err
			}
			for _, event := range events {
				fmt.Println(cli.SuccessStyle.Render(event.Detail))
			}
			return nil
		},
	}
}

func transfersDismissCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss an unmatched transfer from the inbox",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			undismiss, _ := cmd.Flags().GetBool("undo")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			linker := transfer.NewLinker(store, nil)
			return linker.DismissFromInbox(ctx, args[0], !undismiss)
		},
	}
	cmd.Flags().Bool("undo", false, "return a dismissed entry to the inbox")
	return cmd
}

func transfersMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <id>",
		Short: "Mark a standard transaction as an unmatched transfer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			linker := transfer.NewLinker(store, nil)
			return linker.MarkUnmatchedTransfer(ctx, args[0])
		},
	}
}

func transfersConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <id>",
		Short: "Convert an unmatched transfer back to a standard transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			linker := transfer.NewLinker(store, nil)
			return linker.ConvertToStandard(ctx, args[0])
		},
	}
}

// computeSuggestions fetches the unlinked pool over the candidate window and
// scores it. The returned map resolves suggestion IDs back to transactions.
func computeSuggestions(ctx context.Context, store service.Storage) ([]model.TransferSuggestion, map[string]model.Transaction, error) {
	cfg := matchConfig()

	filter := service.TransactionFilter{
		UnlinkedOnly: true,
		Limit:        cfg.FetchLimit,
	}
	if cfg.CandidateWindowDays > 0 {
		start := time.Now().AddDate(0, 0, -cfg.CandidateWindowDays)
		filter.StartDate = &start
	}

	pool, err := store.GetTransactions(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	byID := make(map[string]model.Transaction, len(pool))
	for _, txn := range pool {
		byID[txn.ID] = txn
	}

	scorer := transfer.NewScorer(store, transfer.NewLearner(store))
	suggestions, err := scorer.ComputeSuggestions(ctx, pool, cfg)
	if err != nil {
		return nil, nil, err
	}
	return suggestions, byID, nil
}

func printSuggestion(s model.TransferSuggestion, base, match model.Transaction) {
	fmt.Println()
	fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Suggested transfer  %s  (%d day(s) apart)", cli.FormatScore(s.Score), s.DaysApart)))
	fmt.Printf("  %s  %s  %s  %s\n",
		base.Date.Format("2006-01-02"), cli.AmountStyle.Render(fmt.Sprintf("%9.2f", base.Amount)),
		base.AccountID, base.Payee)
	fmt.Printf("  %s  %s  %s  %s\n",
		match.Date.Format("2006-01-02"), cli.AmountStyle.Render(fmt.Sprintf("%9.2f", match.Amount)),
		match.AccountID, match.Payee)
	fmt.Print("Link? [y/n/u/q] ")
}
