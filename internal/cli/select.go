package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/view"
)

type selectOptions struct {
	count  int
	page   int
	json   bool
	policy string
}

// selectOutput is the --json document.
type selectOutput struct {
	Selected     int              `json:"selected"`
	Added        int              `json:"added"`
	Skipped      int              `json:"skipped"`
	Saturated    bool             `json:"saturated"`
	FetchedPages []int            `json:"fetched_pages"`
	Policy       string           `json:"policy"`
	Records      []artwork.Record `json:"records"`
}

func newSelectCmd(opts *rootOptions) *cobra.Command {
	so := &selectOptions{}

	cmd := &cobra.Command{
		Use:   "select",
		Short: "Select the first N artworks without the browser",
		Long: `Runs one bulk selection starting at --page and prints the selected records.`,
		Example: `  # Select the first 30 artworks
  artic-select select --count 30

  # Select 50 artworks starting at page 4, as JSON
  artic-select select --count 50 --page 4 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if so.count < 1 {
				return fmt.Errorf("%w: --count must be at least 1", view.ErrInvalidCount)
			}
			if so.page < 1 {
				return fmt.Errorf("%w: --page must be at least 1", view.ErrInvalidPage)
			}

			cfg := opts.cfg
			if cmd.Flags().Changed("policy") {
				if _, err := bulk.ParsePolicy(so.policy); err != nil {
					return err
				}
				cfg.BulkPolicy = so.policy
			}

			logger, err := opts.setupLogging(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer opts.closeLog()

			s, err := openSession(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.ctrl.GoToPage(cmd.Context(), so.page); err != nil {
				return fmt.Errorf("load page %d: %w", so.page, err)
			}
			_, res, err := s.ctrl.SubmitBulk(cmd.Context(), so.count)
			if err != nil {
				return fmt.Errorf("bulk selection: %w", err)
			}
			logger.Info().
				Int("target", so.count).
				Int("added", len(res.Added)).
				Int("selected", res.Selected).
				Msg("Bulk selection finished")

			out := selectOutput{
				Selected:     res.Selected,
				Added:        len(res.Added),
				Skipped:      res.Skipped,
				Saturated:    res.Saturated,
				FetchedPages: res.FetchedPages,
				Policy:       s.ctrl.Policy().String(),
				Records:      s.ctrl.SelectedRecords(),
			}
			if out.FetchedPages == nil {
				out.FetchedPages = []int{}
			}

			if so.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printSelection(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVarP(&so.count, "count", "n", 0, "number of artworks to select")
	cmd.Flags().IntVarP(&so.page, "page", "p", 1, "page to start from")
	cmd.Flags().BoolVar(&so.json, "json", false, "print the selection as JSON")
	cmd.Flags().StringVar(&so.policy, "policy", "", "bulk policy: fill_to or add_new")
	_ = cmd.MarkFlagRequired("count")

	return cmd
}

func printSelection(w io.Writer, out selectOutput) error {
	rows := make([][]string, 0, len(out.Records))
	for _, r := range out.Records {
		rows = append(rows, []string{
			strconv.Itoa(r.ID),
			r.Title,
			r.PlaceOfOrigin,
			r.ArtistDisplay,
			strconv.Itoa(r.DateStart),
			strconv.Itoa(r.DateEnd),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Title", "Origin", "Artist", "Start Date", "End Date").
		Rows(rows...)

	summary := fmt.Sprintf("Selected %d artworks (%d added", out.Selected, out.Added)
	if out.Skipped > 0 {
		summary += fmt.Sprintf(", %d already selected", out.Skipped)
	}
	summary += ")"
	if out.Saturated {
		summary += "; the collection ran out before the target"
	}

	_, err := fmt.Fprintf(w, "%s\n%s\n", t.Render(), summary)
	return err
}
