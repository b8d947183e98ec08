package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/frahmantamala/credify/internal/debt"
	"github.com/frahmantamala/credify/internal/money"
	"github.com/spf13/cobra"
)

var debtCmd = &cobra.Command{
	Use:   "debt",
	Short: "Manage the ledger from the terminal",
}

var (
	debtPhoto    string
	debtRate     float64
	listSearch   string
	listStatus   string
	paymentNote  string
	outputAsJSON bool
)

// withApp opens the application for one command and closes it afterwards.
func withApp(fn func(ctx context.Context, app *application, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := setup(ctx)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, app, args)
	}
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printViews(views []debt.View) error {
	if outputAsJSON {
		return printJSON(views)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDEBTOR\tDUE\tSTATUS\tLATE\tINTEREST\tREMAINING")
	for _, v := range views {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			v.ID,
			v.DebtorName,
			money.FormatDate(v.DueDate),
			v.StatusLabel,
			v.Calculation.DaysLate,
			money.FormatBRL(v.Calculation.AccruedInterest),
			money.FormatBRL(v.Calculation.RemainingAmount))
	}
	return tw.Flush()
}

func printView(v *debt.View) error {
	if outputAsJSON {
		return printJSON(v)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", v.ID)
	fmt.Fprintf(tw, "Debtor\t%s (%s)\n", v.DebtorName, money.Initials(v.DebtorName))
	fmt.Fprintf(tw, "Original\t%s\n", money.FormatBRL(v.OriginalAmount))
	fmt.Fprintf(tw, "Rate\t%.2f%% a.m.\n", v.InterestRate)
	fmt.Fprintf(tw, "Due\t%s\n", money.FormatDate(v.DueDate))
	fmt.Fprintf(tw, "Status\t%s\n", v.StatusLabel)
	fmt.Fprintf(tw, "Days late\t%d\n", v.Calculation.DaysLate)
	fmt.Fprintf(tw, "Interest\t%s\n", money.FormatBRL(v.Calculation.AccruedInterest))
	fmt.Fprintf(tw, "Total due\t%s\n", money.FormatBRL(v.Calculation.TotalDue))
	fmt.Fprintf(tw, "Paid\t%s\n", money.FormatBRL(v.Calculation.PaidAmount))
	fmt.Fprintf(tw, "Remaining\t%s\n", money.FormatBRL(v.Calculation.RemainingAmount))
	for i, p := range v.Payments {
		fmt.Fprintf(tw, "Payment %d\t%s on %s %s\n", i+1, money.FormatBRL(p.Amount), money.FormatDate(p.Date), p.Note)
	}
	return tw.Flush()
}

var debtAddCmd = &cobra.Command{
	Use:   "add <debtor> <amount> <due YYYY-MM-DD>",
	Short: "Register a new debt",
	Args:  cobra.ExactArgs(3),
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		due, err := debt.ParseDate(args[2])
		if err != nil {
			return err
		}

		dto := debt.CreateDebtDTO{DebtorName: args[0], OriginalAmount: amount, DueDate: due}
		if debtPhoto != "" {
			dto.DebtorPhoto = &debtPhoto
		}
		if debtRate >= 0 {
			dto.InterestRate = &debtRate
		}

		view, err := app.Service.CreateDebt(ctx, dto)
		if err != nil {
			return err
		}
		return printView(view)
	}),
}

var debtListCmd = &cobra.Command{
	Use:   "list",
	Short: "List debts, newest first",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		query := debt.ListQuery{Search: listSearch, Status: debt.Status(listStatus)}
		if listStatus != "" && !query.Status.Valid() {
			return fmt.Errorf("unknown status %q", listStatus)
		}
		views, err := app.Service.ListDebts(ctx, query)
		if err != nil {
			return err
		}
		return printViews(views)
	}),
}

var debtShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one debt with its valuation for today",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		view, err := app.Service.GetDebt(ctx, args[0])
		if err != nil {
			return err
		}
		return printView(view)
	}),
}

var debtPayCmd = &cobra.Command{
	Use:   "pay <id> <amount>",
	Short: "Record a payment",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		amount, err := parseAmount(args[1])
		if err != nil {
			return err
		}
		view, err := app.Service.AddPayment(ctx, args[0], debt.AddPaymentDTO{Amount: amount, Note: paymentNote})
		if err != nil {
			return err
		}
		return printView(view)
	}),
}

var debtDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a debt and its payments",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		if err := app.Service.DeleteDebt(ctx, args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	}),
}

var debtClearPaidCmd = &cobra.Command{
	Use:   "clear-paid",
	Short: "Remove every settled debt",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		removed, err := app.Service.ClearPaid(ctx)
		if err != nil {
			return err
		}
		fmt.Println("removed", removed)
		return nil
	}),
}

var debtClearAllCmd = &cobra.Command{
	Use:   "clear-all",
	Short: "Remove every debt",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		removed, err := app.Service.ClearAll(ctx)
		if err != nil {
			return err
		}
		fmt.Println("removed", removed)
		return nil
	}),
}

var debtSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show ledger totals for today",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		summary, err := app.Service.Summary(ctx)
		if err != nil {
			return err
		}
		if outputAsJSON {
			return printJSON(summary)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "Day\t%s\n", summary.Day)
		fmt.Fprintf(tw, "Receivable\t%s\n", money.FormatBRL(summary.TotalReceivable))
		fmt.Fprintf(tw, "Overdue\t%s\n", money.FormatBRL(summary.TotalOverdue))
		fmt.Fprintf(tw, "Debts\t%d\n", summary.Total)
		for _, s := range []debt.Status{debt.StatusOverdue, debt.StatusDueSoon, debt.StatusPending, debt.StatusPaid} {
			fmt.Fprintf(tw, "%s\t%d\n", s.Label(), summary.Counts[s])
		}
		if summary.Urgent != nil {
			fmt.Fprintf(tw, "Most urgent\t%s, due %s\n", summary.Urgent.DebtorName, money.FormatDate(summary.Urgent.DueDate))
		}
		return tw.Flush()
	}),
}

var debtRemindCmd = &cobra.Command{
	Use:   "remind <id>",
	Short: "Draft a collection reminder",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, app *application, args []string) error {
		reminder, err := app.Service.Reminder(ctx, args[0])
		if err != nil {
			return err
		}
		if outputAsJSON {
			return printJSON(reminder)
		}
		fmt.Println(reminder.Message)
		return nil
	}),
}

func init() {
	debtCmd.PersistentFlags().BoolVar(&outputAsJSON, "json", false, "print JSON instead of a table")

	debtAddCmd.Flags().StringVar(&debtPhoto, "photo", "", "debtor photo as a data URL")
	debtAddCmd.Flags().Float64Var(&debtRate, "rate", -1, "monthly interest rate in percent (default 2)")
	debtListCmd.Flags().StringVarP(&listSearch, "search", "q", "", "case-insensitive debtor name search")
	debtListCmd.Flags().StringVar(&listStatus, "status", "", "only PAID, PENDING, OVERDUE or DUE_SOON debts")
	debtPayCmd.Flags().StringVar(&paymentNote, "note", "", "payment note")

	debtCmd.AddCommand(debtAddCmd, debtListCmd, debtShowCmd, debtPayCmd, debtDeleteCmd,
		debtClearPaidCmd, debtClearAllCmd, debtSummaryCmd, debtRemindCmd)
	rootCmd.AddCommand(debtCmd)
}
