package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/jjenkins/parliament/internal/service"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print store-wide counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptContext()
		defer cancel()

		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := service.NewStatsService(db).Calculate(ctx)
		if err != nil {
			return err
		}
		printStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func printStats(w io.Writer, s *service.SystemStats) {
	fmt.Fprintln(w, "=== Store Stats ===")
	fmt.Fprintf(w, "Sittings:              %d\n", s.Sittings)
	if s.LatestSitting.Valid {
		fmt.Fprintf(w, "Latest sitting:        %s\n", s.LatestSitting.Time.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Members:               %d\n", s.Members)
	fmt.Fprintf(w, "Attendance rows:       %d\n", s.Attendance)
	fmt.Fprintf(w, "Sections:              %d\n", s.Sections)
	fmt.Fprintf(w, "  attributed:          %d\n", s.AttributedSections)
	fmt.Fprintf(w, "  summarized:          %d\n", s.SummarizedSections)
	fmt.Fprintf(w, "Speaker links:         %d\n", s.Speakers)
	fmt.Fprintf(w, "Bills:                 %d\n", s.Bills)
	fmt.Fprintf(w, "  no first reading:    %d\n", s.BillsWithoutReading)
}
