package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show recorded attendance",
	Long: `Lists attendance events newest first, joined with identity names and
rendered in the display timezone.

Examples:
  # Today's check-ins
  face-attendance attendance --from 2026-03-02 --to 2026-03-02

  # One student's history as JSON
  face-attendance attendance --identity 12 --json`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().String("from", "", "First local date (YYYY-MM-DD), inclusive")
	attendanceCmd.Flags().String("to", "", "Last local date (YYYY-MM-DD), inclusive")
	attendanceCmd.Flags().Int64("identity", 0, "Only this identity ID")
	attendanceCmd.Flags().Int("limit", constants.DefaultAttendancePageSize, "Maximum number of rows")
	attendanceCmd.Flags().Bool("json", false, "Output as JSON")
}

func attendanceFilterFromFlags(cmd *cobra.Command) (database.AttendanceFilter, error) {
	filter := database.AttendanceFilter{
		FromDate:   mustGetString(cmd, "from"),
		ToDate:     mustGetString(cmd, "to"),
		IdentityID: mustGetInt64(cmd, "identity"),
		Limit:      mustGetInt(cmd, "limit"),
	}
	for _, d := range []string{filter.FromDate, filter.ToDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(database.LocalDateLayout, d); err != nil {
			return filter, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", d)
		}
	}
	if filter.FromDate != "" && filter.ToDate != "" && filter.FromDate > filter.ToDate {
		return filter, errors.New("--from must not be after --to")
	}
	if filter.Limit <= 0 {
		return filter, errors.New("--limit must be positive")
	}
	filter.Limit = min(filter.Limit, constants.MaxAttendancePageSize)
	return filter, nil
}

func runAttendance(cmd *cobra.Command, args []string) error {
	filter, err := attendanceFilterFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, backend, err := connect(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	rows, err := svc.Records().ListAttendance(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list attendance: %w", err)
	}

	if mustGetBool(cmd, "json") {
		if rows == nil {
			rows = []database.AttendanceRow{}
		}
		return outputJSON(rows)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tSTUDENT ID\tNAME\tSTATUS")
	fmt.Fprintln(w, "----\t----\t----------\t----\t------")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", row.LocalDate, localTime(svc, row.RecordedAt), row.StudentID, row.Name, row.Status)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d events\n", len(rows))
	return nil
}
