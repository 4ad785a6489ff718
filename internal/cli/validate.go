package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cardbook/internal/catalog"
)

// ValidationResult summarizes a valid catalog.
type ValidationResult struct {
	Valid     bool         `json:"valid"`
	Album     int64        `json:"album"`
	Name      string       `json:"name,omitempty"`
	Sets      int          `json:"sets"`
	Cards     int          `json:"cards"`
	EmptySets []int64      `json:"empty_sets,omitempty"`
	Hash      string       `json:"hash"`
	SetSizes  []SetSummary `json:"set_sizes"`
}

// SetSummary is one set's card count.
type SetSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name,omitempty"`
	Cards int    `json:"cards"`
}

func (r ValidationResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "✓ Catalog valid: album %d %q, %d sets, %d cards\n", r.Album, r.Name, r.Sets, r.Cards)
	for _, s := range r.SetSizes {
		fmt.Fprintf(&b, "  set %d %q: %d cards\n", s.ID, s.Name, s.Cards)
	}
	if len(r.EmptySets) > 0 {
		fmt.Fprintf(&b, "  empty sets (complete on first assignment): %v\n", r.EmptySets)
	}
	fmt.Fprintf(&b, "  hash: %s", r.Hash)
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalog file",
		Long: `Load a catalog (.yaml, .json or .cue) and check that every set id is
unique and every card belongs to exactly one set.

Examples:
  cardbook validate ./animals.yaml
  cardbook validate ./animals.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	if _, err := opts.resolveConfig(cmd); err != nil {
		return err
	}
	formatter := opts.newFormatter(cmd)

	album, err := loadCatalog(formatter, path)
	if err != nil {
		return err
	}

	hash, err := catalog.Hash(album)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to hash catalog", err)
	}

	result := ValidationResult{
		Valid: true,
		Album: int64(album.ID),
		Name:  album.Name,
		Sets:  len(album.Sets),
		Cards: album.CardCount(),
		Hash:  hash,
	}
	for _, s := range album.Sets {
		result.SetSizes = append(result.SetSizes, SetSummary{ID: int64(s.ID), Name: s.Name, Cards: len(s.Cards)})
		if len(s.Cards) == 0 {
			result.EmptySets = append(result.EmptySets, int64(s.ID))
		}
	}
	return formatter.Success(result)
}
