package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/event"
)

// AssignOptions holds flags for the assign command.
type AssignOptions struct {
	User  int64
	Cards []int64
}

// CardOutcome is the result of assigning one card.
type CardOutcome struct {
	Card    int64       `json:"card"`
	Outcome string      `json:"outcome"` // recorded | duplicate | unknown_card
	Events  []EventView `json:"events,omitempty"`
}

// AssignResult is the output of the assign command.
type AssignResult struct {
	User     int64         `json:"user"`
	Outcomes []CardOutcome `json:"outcomes"`
	Events   int           `json:"events"`
}

func (r AssignResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "user %d: %d cards, %d events", r.User, len(r.Outcomes), r.Events)
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "\n  card %d: %s", o.Card, o.Outcome)
		for _, e := range o.Events {
			fmt.Fprintf(&b, "\n    %s", e)
		}
	}
	return b.String()
}

// NewAssignCommand creates the assign command.
func NewAssignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssignOptions{}

	cmd := &cobra.Command{
		Use:   "assign --catalog <file> --user <id> --card <id>...",
		Short: "Assign cards to a user and print completion events",
		Long: `Assign one or more cards to a single user in order and print every
SET_FINISHED and ALBUM_FINISHED event they trigger.

State lives only for the duration of the command. Use --db to journal
the events.

Examples:
  cardbook assign --catalog animals.yaml --user 1 --card 1,2,3,4
  cardbook assign --catalog animals.yaml --user 1 --card 5 --card 6 --db cardbook.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssign(rootOpts, opts, cmd)
		},
	}

	addCatalogFlag(cmd)
	addDBFlag(cmd, "event journal to append to (optional)")
	cmd.Flags().Int64Var(&opts.User, "user", 0, "user id (required)")
	cmd.Flags().Int64SliceVar(&opts.Cards, "card", nil, "card id, repeatable or comma separated (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("card")

	return cmd
}

func runAssign(rootOpts *RootOptions, opts *AssignOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	formatter := rootOpts.newFormatter(cmd)
	logger := rootOpts.newLogger(cmd.ErrOrStderr(), cfg)

	album, err := loadCatalog(formatter, cfg.Catalog)
	if err != nil {
		return err
	}

	j, err := openJournal(commandContext(cmd), cfg.DB, "assign", album, rootOpts.RunIDs)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"db": cfg.DB})
		return err
	}
	defer j.close(logger)
	formatter.RunID = j.id()

	svc := assign.New(catalog.NewIndex(album), assign.WithLogger(logger))
	j.attach(svc, logger)

	var current *CardOutcome
	svc.Subscribe(func(e event.Event) {
		if current != nil {
			current.Events = append(current.Events, viewEvent(e))
		}
	})

	result := AssignResult{User: opts.User, Outcomes: []CardOutcome{}}
	for _, card := range opts.Cards {
		outcome := CardOutcome{Card: card}
		duplicate := svc.Tracker().HasCard(opts.User, catalog.CardID(card))
		current = &outcome
		err := svc.AssignCard(opts.User, catalog.CardID(card))
		current = nil
		if err != nil {
			if isUnknownCard(err) {
				_ = formatter.Error(ErrCodeUnknownCard, err.Error(), map[string]int64{"user": opts.User, "card": card})
				return WrapExitError(ExitFailure, "assignment stopped", err)
			}
			return WrapExitError(ExitFailure, "assignment failed", err)
		}
		switch {
		case duplicate:
			outcome.Outcome = assign.ResultDuplicate
		default:
			outcome.Outcome = assign.ResultRecorded
		}
		result.Events += len(outcome.Events)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	return formatter.Success(result)
}
