package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Enroll identities from a JSON-lines file",
	Long: `Enrolls identities in bulk. Each line is one JSON object:

  {"student_id": "TI-001", "name": "Ayu Lestari", "major": "Informatics", "descriptor": [0.12, ...]}
  {"student_id": "TI-002", "name": "Budi Santoso", "major": "Physics", "image": "photos/budi.jpg"}

Image paths are resolved relative to the import file. Every line goes through
the same duplicate face and student ID checks as a single enrollment.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
}

// importEntry is one line of an import file
type importEntry struct {
	Line       int       `json:"-"`
	StudentID  string    `json:"student_id"`
	Name       string    `json:"name"`
	Major      string    `json:"major"`
	Descriptor []float32 `json:"descriptor,omitempty"`
	Image      string    `json:"image,omitempty"`
}

// ImportLineResult reports the outcome of one import line
type ImportLineResult struct {
	Line      int    `json:"line"`
	StudentID string `json:"student_id"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// ImportResult summarizes an import run
type ImportResult struct {
	BatchID       string             `json:"batch_id"`
	Total         int                `json:"total"`
	Outcomes      map[string]int     `json:"outcomes"`
	Errors        int                `json:"errors"`
	Lines         []ImportLineResult `json:"lines"`
	DurationMs    int64              `json:"duration_ms"`
	DurationHuman string             `json:"duration_human,omitempty"`
}

// readImportFile parses JSON lines, skipping blank lines. Image paths are made
// relative to baseDir.
func readImportFile(r io.Reader, baseDir string) ([]importEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), constants.MaxImportLineSize)

	var entries []importEntry
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var e importEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if e.Image != "" && len(e.Descriptor) > 0 {
			return nil, fmt.Errorf("line %d: image and descriptor are mutually exclusive", line)
		}
		if e.Image != "" && !filepath.IsAbs(e.Image) {
			e.Image = filepath.Join(baseDir, e.Image)
		}
		e.Line = line
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading import file: %w", err)
	}
	return entries, nil
}

func (e importEntry) request() (attendance.EnrollRequest, error) {
	req := attendance.EnrollRequest{
		StudentID: e.StudentID,
		Name:      e.Name,
		Major:     e.Major,
		Capture:   attendance.Capture{Descriptor: e.Descriptor},
	}
	if e.Image != "" {
		data, err := os.ReadFile(e.Image)
		if err != nil {
			return req, fmt.Errorf("reading image: %w", err)
		}
		req.Capture.Image = data
	}
	return req, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	entries, err := readImportFile(f, filepath.Dir(path))
	f.Close()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errors.New("import file has no entries")
	}

	ctx := context.Background()
	svc, backend, err := connect(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	startTime := time.Now()
	result := ImportResult{
		BatchID:  uuid.NewString(),
		Total:    len(entries),
		Outcomes: make(map[string]int),
		Lines:    make([]ImportLineResult, 0, len(entries)),
	}

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		fmt.Printf("Importing %d identities (batch %s)\n\n", len(entries), result.BatchID)
		bar = progressbar.NewOptions(len(entries),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("identities"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	for _, e := range entries {
		lr := ImportLineResult{Line: e.Line, StudentID: e.StudentID}

		req, err := e.request()
		if err == nil {
			var res attendance.EnrollResult
			res, err = svc.Enroll(ctx, req)
			lr.Outcome = string(res.Outcome)
		}
		if err != nil {
			lr.Outcome = "error"
			lr.Error = err.Error()
			result.Errors++
		} else {
			result.Outcomes[lr.Outcome]++
		}
		result.Lines = append(result.Lines, lr)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	duration := time.Since(startTime)
	result.DurationMs = duration.Milliseconds()
	result.DurationHuman = duration.Round(time.Millisecond).String()

	if jsonOutput {
		return outputJSON(result)
	}

	fmt.Printf("\n\nImport complete in %s\n", result.DurationHuman)
	for _, outcome := range []attendance.EnrollOutcome{
		attendance.EnrollOutcomeEnrolled,
		attendance.EnrollOutcomeDuplicateFace,
		attendance.EnrollOutcomeDuplicateStudentID,
		attendance.EnrollOutcomeNoFaceDetected,
	} {
		fmt.Printf("  %-22s %d\n", outcome+":", result.Outcomes[string(outcome)])
	}
	fmt.Printf("  %-22s %d\n", "errors:", result.Errors)
	for _, lr := range result.Lines {
		if lr.Error != "" {
			fmt.Printf("  line %d (%s): %s\n", lr.Line, lr.StudentID, lr.Error)
		}
	}
	return nil
}
