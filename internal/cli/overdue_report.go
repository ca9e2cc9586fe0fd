package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/entrypoint"
)

const dateLayout = "2006-01-02"

type OverdueReportCommand struct {
	AsOf    string
	Storage storageFlags

	Config config.Config
	Out    io.Writer
}

func NewOverdueReportCommand(cfg *config.Config) *OverdueReportCommand {
	return &OverdueReportCommand{Config: *cfg}
}

func (cmd *OverdueReportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("overdue-report", flag.ExitOnError)

	fs.StringVar(&cmd.AsOf, "as-of", "", "Report date as YYYY-MM-DD (default: today)")
	cmd.Storage.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s overdue-report [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "List loans past their due date with the fines accrued so far.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s overdue-report\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s overdue-report -as-of 2025-01-31\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.AsOf != "" {
		if _, err := time.Parse(dateLayout, cmd.AsOf); err != nil {
			return fmt.Errorf("invalid -as-of date %q, expected YYYY-MM-DD", cmd.AsOf)
		}
	}

	return nil
}

func (cmd *OverdueReportCommand) Run() error {
	backend, err := cmd.Storage.open(cmd.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()

	engine := entrypoint.NewEngine(backend.Store, cmd.Config.Circulation)

	asOf := engine.Today()
	if cmd.AsOf != "" {
		if asOf, err = time.Parse(dateLayout, cmd.AsOf); err != nil {
			return fmt.Errorf("invalid -as-of date: %w", err)
		}
	}

	overdue, err := engine.OverdueLoans(context.Background(), asOf)
	if err != nil {
		return fmt.Errorf("failed to list overdue loans: %w", err)
	}

	out := stdout(cmd.Out)
	fmt.Fprintf(out, "Overdue loans as of %s\n\n", asOf.Format(dateLayout))
	if len(overdue) == 0 {
		fmt.Fprintln(out, "No overdue loans.")
		return nil
	}

	total := decimal.Zero
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LOAN\tBORROWER\tTITLE\tDUE\tDAYS LATE\tFINE")
	for _, loan := range overdue {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			loan.ID, loan.Requester, loan.Title, loan.DueDate.Format(dateLayout), loan.DaysLate, loan.Fine.StringFixed(2))
		total = total.Add(loan.Fine)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%d overdue loan(s), %s accrued\n", len(overdue), total.StringFixed(2))
	return nil
}
