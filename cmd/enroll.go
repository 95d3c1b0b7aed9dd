package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a new identity from a face capture",
	Long: `Enroll a student with their first face descriptor.

The capture is rejected when it matches an already enrolled identity
(duplicate face) or when the student ID is taken.

Examples:
  # Enroll from a photo (requires the detection service)
  face-attendance enroll --student-id TI-001 --name "Ayu Lestari" --major Informatics --image ayu.jpg

  # Enroll from a precomputed descriptor
  face-attendance enroll --student-id TI-002 --name "Budi" --major Physics --descriptor 0.12,-0.03,...`,
	RunE: runEnroll,
}

var addFaceCmd = &cobra.Command{
	Use:   "add-face <identity-id>",
	Short: "Add another face descriptor to an existing identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runAddFace,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	rootCmd.AddCommand(addFaceCmd)

	enrollCmd.Flags().String("student-id", "", "Student ID (unique)")
	enrollCmd.Flags().String("name", "", "Full name")
	enrollCmd.Flags().String("major", "", "Major or department")
	enrollCmd.Flags().Bool("json", false, "Output as JSON")
	addCaptureFlags(enrollCmd)

	addFaceCmd.Flags().Bool("json", false, "Output as JSON")
	addCaptureFlags(addFaceCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	capture, err := captureFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, backend, err := connect(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	result, err := svc.Enroll(ctx, attendance.EnrollRequest{
		StudentID: mustGetString(cmd, "student-id"),
		Name:      mustGetString(cmd, "name"),
		Major:     mustGetString(cmd, "major"),
		Capture:   capture,
	})
	if err != nil {
		return fmt.Errorf("enrollment failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	printEnrollResult(result)
	return nil
}

func runAddFace(cmd *cobra.Command, args []string) error {
	identityID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || identityID <= 0 {
		return fmt.Errorf("invalid identity id %q", args[0])
	}
	capture, err := captureFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, backend, err := connect(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	result, err := svc.AddFace(ctx, identityID, capture)
	if err != nil {
		return fmt.Errorf("adding face failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}
	printEnrollResult(result)
	return nil
}

func printEnrollResult(result attendance.EnrollResult) {
	switch result.Outcome {
	case attendance.EnrollOutcomeEnrolled:
		fmt.Printf("Enrolled %s (%s) as identity %d\n", result.Identity.Name, result.Identity.StudentID, result.Identity.ID)
	case attendance.EnrollOutcomeDescriptorAdded:
		fmt.Printf("Added a face to %s (%s)\n", result.Identity.Name, result.Identity.StudentID)
	case attendance.EnrollOutcomeDuplicateFace:
		fmt.Printf("Rejected: face already enrolled as %s (%s), distance %.4f\n",
			result.Conflict.Name, result.Conflict.StudentID, result.Distance)
	case attendance.EnrollOutcomeDuplicateStudentID:
		fmt.Println("Rejected: student ID is already enrolled")
	case attendance.EnrollOutcomeNoFaceDetected:
		fmt.Println("Rejected: no face detected in the capture")
	}
}
