package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities",
	Short: "List enrolled identities",
	Long: `Lists enrolled identities with their descriptor counts.
The optional --query matches names and student IDs, ignoring case and accents.`,
	RunE: runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)

	identitiesCmd.Flags().StringP("query", "q", "", "Filter by name or student ID")
	identitiesCmd.Flags().Bool("json", false, "Output as JSON")
}

// IdentityListItem is one row of the identities listing
type IdentityListItem struct {
	ID          int64  `json:"id"`
	StudentID   string `json:"student_id"`
	Name        string `json:"name"`
	Major       string `json:"major"`
	Descriptors int    `json:"descriptors"`
}

func runIdentities(cmd *cobra.Command, args []string) error {
	query := mustGetString(cmd, "query")

	ctx := context.Background()
	svc, backend, err := connect(ctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	items := []IdentityListItem{}
	for _, rec := range svc.Snapshot().Entries() {
		if query != "" && !facematch.MatchesQuery(rec.Identity, query) {
			continue
		}
		items = append(items, IdentityListItem{
			ID:          rec.Identity.ID,
			StudentID:   rec.Identity.StudentID,
			Name:        rec.Identity.Name,
			Major:       rec.Identity.Major,
			Descriptors: len(rec.Descriptors),
		})
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(items)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT ID\tNAME\tMAJOR\tFACES")
	fmt.Fprintln(w, "--\t----------\t----\t-----\t-----")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n", it.ID, it.StudentID, it.Name, it.Major, it.Descriptors)
	}
	w.Flush()

	fmt.Printf("\nTotal: %d identities\n", len(items))
	return nil
}
