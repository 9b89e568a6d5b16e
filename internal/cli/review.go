package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mail-expense-intake/internal/app"
	"mail-expense-intake/internal/review"
)

func newPendingCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List documents awaiting review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd, func(ctx context.Context, a *app.App) error {
				docs, err := a.Review.ListPending(ctx)
				if err != nil {
					return fmt.Errorf("list pending: %w", err)
				}

				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(docs)
				}

				if len(docs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending documents.")
					return nil
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tVENDOR\tAMOUNT\tCATEGORY\tSUGGESTED JOB\tSUBJECT")
				for _, d := range docs {
					job := "-"
					if d.SuggestedJobID != nil {
						job = *d.SuggestedJobID
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						d.ID, d.Vendor, d.Amount.StringFixed(2), d.Category, job, d.SourceSubject)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print documents as JSON")
	return cmd
}

func newDecideCmd(opts *options) *cobra.Command {
	var jobID, category string

	cmd := &cobra.Command{
		Use:   "decide <document-id> <approve|reject>",
		Short: "Approve or reject a pending document",
		Long: `Decide resolves a pending document. Approve commits it into the ledger of
the suggested job unless --job is given, using the extracted category unless
--category is given. Reject closes it without touching any ledger.

Examples:
  expense-intake decide 5f0c... approve
  expense-intake decide 5f0c... approve --job J9 --category subtrades
  expense-intake decide 5f0c... reject`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := review.Decision{Action: review.Action(args[1])}
			if cmd.Flags().Changed("job") {
				d.JobID = &jobID
			}
			if cmd.Flags().Changed("category") {
				d.Category = &category
			}

			return opts.withStore(cmd, func(ctx context.Context, a *app.App) error {
				doc, err := a.Review.Decide(ctx, args[0], d)
				if err != nil {
					return err
				}

				msg := fmt.Sprintf("Document %s %s", doc.ID, doc.Status)
				if doc.ResolvedJobID != nil && doc.ResolvedCategory != nil && doc.CommittedRecordID != nil {
					msg += fmt.Sprintf(" (job %s, %s record %s)", *doc.ResolvedJobID, *doc.ResolvedCategory, *doc.CommittedRecordID)
				}
				fmt.Fprintln(cmd.OutOrStdout(), msg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "job id overriding the suggestion")
	cmd.Flags().StringVar(&category, "category", "", "category overriding the extracted one")
	return cmd
}
