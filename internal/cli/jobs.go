package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mail-expense-intake/internal/app"
	"mail-expense-intake/internal/model"
)

func newJobsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage the job and employee directory used for matching",
	}
	cmd.AddCommand(newJobsListCmd(opts), newJobsAddCmd(opts), newEmployeeAddCmd(opts))
	return cmd
}

func newJobsListCmd(opts *options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withStore(cmd, func(ctx context.Context, a *app.App) error {
				jobs, err := a.Repo.ListJobs(ctx, !all)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tADDRESS\tNAME\tACTIVE")
				for _, j := range jobs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", j.ID, j.Address, j.Name, j.Active)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include inactive jobs")
	return cmd
}

func newJobsAddCmd(opts *options) *cobra.Command {
	var job model.Job
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add <id> <address>",
		Short: "Add a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			job.ID = args[0]
			job.Address = args[1]
			job.Active = !inactive

			return opts.withStore(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Repo.CreateJob(ctx, &job); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s added\n", job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&job.Name, "name", "", "job name")
	cmd.Flags().StringVar(&job.FolderName, "folder", "", "archive folder name")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "add the job as inactive")
	return cmd
}

func newEmployeeAddCmd(opts *options) *cobra.Command {
	var emp model.Employee

	cmd := &cobra.Command{
		Use:   "add-employee <id> <first-name>",
		Short: "Add an employee for sender matching",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			emp.ID = args[0]
			emp.FirstName = args[1]

			return opts.withStore(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Repo.CreateEmployee(ctx, &emp); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Employee %s added\n", emp.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&emp.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&emp.Email, "email", "", "email address")
	return cmd
}
