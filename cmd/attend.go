package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var attendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Mark attendance from a face capture",
	Long: `Authorize a face capture against the enrolled identities and record
attendance for the recognized student. A student is recorded at most
once per local day.

Examples:
  face-attendance attend --image capture.jpg
  face-attendance attend --descriptor 0.12,-0.03,... --at 2026-03-02T07:55:00+07:00`,
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)

	attendCmd.Flags().String("at", "", "Capture time (RFC 3339), defaults to now")
	attendCmd.Flags().Bool("json", false, "Output as JSON")
	addCaptureFlags(attendCmd)
}

func runAttend(cmd *cobra.Command, args []string) error {
	capture, err := captureFromFlags(cmd)
	if err != nil {
		return err
	}

	var at time.Time
	if s := mustGetString(cmd, "at"); s != "" {
		at, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}

	ctx := context.Background()
	svc, backend, err := connect(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	result, err := svc.MarkAttendance(ctx, capture, at)
	if mustGetBool(cmd, "json") {
		if jsonErr := outputJSON(result); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("marking attendance failed: %w", err)
	}

	switch {
	case result.Decision == facematch.DecisionNoFaceDetected:
		fmt.Println("No face detected")
	case result.Decision == facematch.DecisionNotRecognized:
		fmt.Println("Face not recognized")
	case result.Record.Outcome == attendance.OutcomeRecorded:
		fmt.Printf("Recorded %s (%s): %s at %s\n", result.Identity.Name, result.Identity.StudentID,
			result.Record.Status, localTime(svc, result.Record.Event.RecordedAt))
	case result.Record.Outcome == attendance.OutcomeAlreadyRecordedToday:
		fmt.Printf("%s (%s) is already recorded for %s\n", result.Identity.Name, result.Identity.StudentID, result.Record.LocalDate)
	}
	return nil
}
