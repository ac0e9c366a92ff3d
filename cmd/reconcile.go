package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jjenkins/parliament/internal/service"
	"github.com/spf13/cobra"
)

var (
	reconcileKeepNewest bool
	reconcileDryRun     bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair duplicate sections and bills",
	Long: `Reconcile removes duplicates left behind by repeated or concurrent
ingestion. Do not run it while the same range is being ingested.`,
}

var reconcileSectionsCmd = &cobra.Command{
	Use:   "sections START [END]",
	Short: "Keep one section per sitting, title and type",
	Long: `Sections keeps one section per (sitting, title, type) for the sittings
between START and END and deletes the rest in a single transaction.

The survivor is the earliest created section, or the latest with
--keep-newest. Ties go to the lowest id.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runReconcileSections,
}

var reconcileBillsCmd = &cobra.Command{
	Use:   "bills",
	Short: "Merge bills whose titles differ only by case or whitespace",
	Long: `Bills groups bills by trimmed, case-folded title. In each group the bill
with the most sections (then the earliest created, then the lowest id) is
kept; the others' sections move to it and the others are deleted.`,
	Args: cobra.NoArgs,
	RunE: runReconcileBills,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.AddCommand(reconcileSectionsCmd, reconcileBillsCmd)

	reconcileCmd.PersistentFlags().BoolVar(&reconcileDryRun, "dry-run", false, "Report what would change without writing")
	reconcileSectionsCmd.Flags().BoolVar(&reconcileKeepNewest, "keep-newest", false, "Keep the latest created section instead of the earliest")
}

func runReconcileSections(cmd *cobra.Command, args []string) error {
	start, end, err := parseDateArgs(args)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := service.NewReconciler(db, logger).DedupSections(ctx, service.SectionDedupOptions{
		Start:      start,
		End:        end,
		KeepNewest: reconcileKeepNewest,
		DryRun:     reconcileDryRun,
	})
	if err != nil {
		return err
	}

	printSectionDedup(os.Stdout, report)
	return nil
}

func runReconcileBills(cmd *cobra.Command, args []string) error {
	ctx, cancel := interruptContext()
	defer cancel()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := service.NewReconciler(db, logger).MergeBills(ctx, service.BillMergeOptions{DryRun: reconcileDryRun})
	if report != nil {
		printBillMerge(os.Stdout, report)
	}
	return err
}

func printSectionDedup(w io.Writer, r *service.SectionDedupReport) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Section Dedup Summary ===")
	fmt.Fprintf(w, "Sittings scanned: %d\n", r.SittingsScanned)
	fmt.Fprintf(w, "Duplicates:       %d\n", len(r.Duplicates))
	for _, d := range r.Duplicates {
		fmt.Fprintf(w, "  %s [%s] %s (id %d)\n", d.SittingDate.Format("2006-01-02"), d.SectionType, d.Title, d.ID)
	}
	if r.DryRun {
		fmt.Fprintln(w, "Dry run: nothing deleted")
		return
	}
	fmt.Fprintf(w, "Deleted:          %d\n", r.Deleted)
}

func printBillMerge(w io.Writer, r *service.BillMergeReport) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "=== Bill Merge Summary ===")
	fmt.Fprintf(w, "Duplicate groups: %d\n", len(r.Groups))
	for _, g := range r.Groups {
		fmt.Fprintf(w, "  %q (id %d) absorbs %d bill(s), %d section(s) moved\n",
			g.Master.Title, g.Master.ID, len(g.Duplicates), g.SectionsMoved)
	}
	if r.DryRun {
		fmt.Fprintln(w, "Dry run: nothing merged")
		return
	}
	fmt.Fprintf(w, "Merged:           %d\n", r.Merged)
	fmt.Fprintf(w, "Deleted bills:    %d\n", len(r.DeletedIDs))
}
