package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dailypick/dailypick/internal/core"
	"github.com/dailypick/dailypick/internal/core/store"
	"github.com/dailypick/dailypick/internal/metrics"
	"github.com/dailypick/dailypick/internal/observability"
	"github.com/dailypick/dailypick/internal/output"
)

var (
	candidatesCategory string
	candidatesTag      string

	candidateID       string
	candidateName     string
	candidateCategory string
	candidateTags     []string

	importDryRun bool
)

var candidatesCmd = &cobra.Command{
	Use:     "candidates",
	Aliases: []string{"candidate"},
	Short:   "Manage the candidate catalog",
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		candidates, err := a.catalog.ListCandidates(ctx, core.CandidateQuery{
			Category: candidatesCategory,
			Tag:      candidatesTag,
		})
		if err != nil {
			return err
		}

		return writeOutput(cmd, "candidates", func(f output.Formatter) (string, error) {
			return f.FormatCandidates(candidates)
		})
	},
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or update a candidate",
	Example: `  dailypick candidates add --name Cedar --category tree --tag evergreen
  dailypick candidates add --id cedar --name "Western Red Cedar"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		saved, err := a.store.UpsertCandidate(ctx, core.Candidate{
			ID:       candidateID,
			Name:     candidateName,
			Category: candidateCategory,
			Tags:     candidateTags,
		}, time.Now().UTC())
		metrics.RecordOperation("candidate_upsert", err == nil)
		if err != nil {
			return err
		}

		observability.CLILogger.Info("Candidate saved", zap.String("id", saved.ID))
		return writeOutput(cmd, "candidate."+saved.ID, func(f output.Formatter) (string, error) {
			return f.FormatCandidates([]core.Candidate{saved})
		})
	},
}

var candidatesRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a candidate",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		id := strings.TrimSpace(args[0])
		removed, err := a.store.DeleteCandidate(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("candidate %s: %w", id, store.ErrNotFound)
		}

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed candidate %s\n", id)
		return err
	},
}

var candidatesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import candidates and overrides from a YAML catalog",
	Long: `Import candidates from a YAML catalog file. Entries are upserted by ID;
entries without an ID get a generated one. An optional overrides map assigns
candidates to dates.

  candidates:
    - id: cedar
      name: Cedar
      category: tree
      tags: [evergreen, winter]
  overrides:
    "2025-12-25": cedar`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close() // nolint:errcheck // read-only

		catalogFile, err := store.ParseCandidatesYAML(file)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		if importDryRun {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Would import %d candidate(s) and %d override(s)\n",
				len(catalogFile.Candidates), len(catalogFile.Overrides))
			return err
		}

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close() // nolint:errcheck // best-effort cleanup

		now := time.Now().UTC()
		imported, err := a.store.ImportCandidates(ctx, catalogFile.CoreCandidates(), now)
		metrics.RecordOperation("candidate_import", err == nil)
		if err != nil {
			return err
		}

		for date, id := range catalogFile.Overrides {
			if _, err := a.store.SetOverride(ctx, core.Override{Date: date, CandidateID: id, CreatedAt: now}); err != nil {
				return err
			}
		}

		observability.CLILogger.Info("Catalog imported",
			zap.String("file", args[0]),
			zap.Int("candidates", imported),
			zap.Int("overrides", len(catalogFile.Overrides)))

		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d candidate(s) and %d override(s)\n",
			imported, len(catalogFile.Overrides))
		return err
	},
}

func init() {
	candidatesListCmd.Flags().StringVar(&candidatesCategory, "category", "", "Only candidates in this category")
	candidatesListCmd.Flags().StringVar(&candidatesTag, "tag", "", "Only candidates carrying this tag")
	addOutputFlags(candidatesListCmd)

	candidatesAddCmd.Flags().StringVar(&candidateID, "id", "", "Candidate ID (generated when empty)")
	candidatesAddCmd.Flags().StringVar(&candidateName, "name", "", "Display name")
	candidatesAddCmd.Flags().StringVar(&candidateCategory, "category", "", "Category")
	candidatesAddCmd.Flags().StringSliceVar(&candidateTags, "tag", nil, "Tag (repeatable or comma separated)")
	_ = candidatesAddCmd.MarkFlagRequired("name")
	addOutputFlags(candidatesAddCmd)

	candidatesImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate the file without writing")

	candidatesCmd.AddCommand(candidatesListCmd, candidatesAddCmd, candidatesRemoveCmd, candidatesImportCmd)
	rootCmd.AddCommand(candidatesCmd)
}
