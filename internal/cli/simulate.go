package cli

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cardbook/internal/assign"
	"github.com/roach88/cardbook/internal/catalog"
	"github.com/roach88/cardbook/internal/config"
	"github.com/roach88/cardbook/internal/event"
)

// SimulateOptions holds flags for the simulate command. User, worker,
// round and seed counts come from config so they can also be set in
// cardbook.yaml or CARDBOOK_SIMULATE_*.
type SimulateOptions struct {
	MetricsFile string
}

// SimulateResult is the output of the simulate command.
type SimulateResult struct {
	Users       int      `json:"users"`
	Workers     int      `json:"workers"`
	Rounds      int      `json:"rounds"`
	Sets        int      `json:"sets"`
	Cards       int      `json:"cards"`
	Assignments int      `json:"assignments"`
	Recorded    int      `json:"recorded"`
	Duplicates  int      `json:"duplicates"`
	SetEvents   int      `json:"set_events"`
	AlbumEvents int      `json:"album_events"`
	Violations  []string `json:"violations,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms"`
}

func (r SimulateResult) String() string {
	var b strings.Builder
	status := "✓"
	if len(r.Violations) > 0 {
		status = "✗"
	}
	fmt.Fprintf(&b, "%s %d users × %d sets, %d workers × %d rounds (%dms)\n",
		status, r.Users, r.Sets, r.Workers, r.Rounds, r.ElapsedMS)
	fmt.Fprintf(&b, "  assignments: %d (%d recorded, %d duplicate)\n", r.Assignments, r.Recorded, r.Duplicates)
	fmt.Fprintf(&b, "  SET_FINISHED: %d (want %d)\n", r.SetEvents, r.Users*r.Sets)
	fmt.Fprintf(&b, "  ALBUM_FINISHED: %d (want %d)", r.AlbumEvents, r.Users)
	for _, v := range r.Violations {
		fmt.Fprintf(&b, "\n  %s", v)
	}
	return b.String()
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{}
	d := config.Default().Simulate

	cmd := &cobra.Command{
		Use:   "simulate --catalog <file>",
		Short: "Race concurrent assignments and check exactly-once completion",
		Long: `Start --workers goroutines that each deliver every card of the catalog
to every user, --rounds times, in a shuffled order. Every user ends up
with the full album, so each user must see exactly one SET_FINISHED per
set and exactly one ALBUM_FINISHED. Any other count fails the command.

Examples:
  cardbook simulate --catalog animals.yaml
  cardbook simulate --catalog animals.yaml --users 500 --workers 32 --metrics-file sim.prom`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(rootOpts, opts, cmd)
		},
	}

	addCatalogFlag(cmd)
	addDBFlag(cmd, "event journal to append to (optional)")
	cmd.Flags().Int("users", d.Users, "number of users")
	cmd.Flags().Int("workers", d.Workers, "number of concurrent workers")
	cmd.Flags().Int("rounds", d.Rounds, "passes each worker makes over every card")
	cmd.Flags().Int64("seed", d.Seed, "shuffle seed; worker w uses seed+w")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to this file when done")

	return cmd
}

// completionCounter counts events per user and per (user, set).
type completionCounter struct {
	mu     sync.Mutex
	sets   map[[2]int64]int
	albums map[int64]int
	total  map[event.Kind]int
}

func newCompletionCounter() *completionCounter {
	return &completionCounter{
		sets:   make(map[[2]int64]int),
		albums: make(map[int64]int),
		total:  make(map[event.Kind]int),
	}
}

func (c *completionCounter) handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total[e.Kind]++
	switch e.Kind {
	case event.KindSetFinished:
		c.sets[[2]int64{e.UserID, int64(e.SetID)}]++
	case event.KindAlbumFinished:
		c.albums[e.UserID]++
	}
}

// violations lists every (user, set) or user whose completion count is not
// exactly one.
func (c *completionCounter) violations(users int, sets []catalog.SetID) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for u := int64(1); u <= int64(users); u++ {
		for _, s := range sets {
			if n := c.sets[[2]int64{u, int64(s)}]; n != 1 {
				out = append(out, fmt.Sprintf("user %d set %d: %d SET_FINISHED", u, s, n))
			}
		}
		if n := c.albums[u]; n != 1 {
			out = append(out, fmt.Sprintf("user %d: %d ALBUM_FINISHED", u, n))
		}
	}
	return out
}

// simulate runs the workers. Users are numbered 1..sim.Users.
func simulate(ctx context.Context, svc *assign.Service, cards []catalog.CardID, sim config.SimulateConfig) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < sim.Workers; w++ {
		rng := rand.New(rand.NewSource(sim.Seed + int64(w)))
		g.Go(func() error {
			order := make([]catalog.CardID, len(cards))
			copy(order, cards)
			for r := 0; r < sim.Rounds; r++ {
				rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
				for _, card := range order {
					if err := ctx.Err(); err != nil {
						return err
					}
					for u := 1; u <= sim.Users; u++ {
						if err := svc.AssignCard(int64(u), card); err != nil {
							return err
						}
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func runSimulate(rootOpts *RootOptions, opts *SimulateOptions, cmd *cobra.Command) error {
	cfg, err := rootOpts.resolveConfig(cmd)
	if err != nil {
		return err
	}
	formatter := rootOpts.newFormatter(cmd)
	logger := rootOpts.newLogger(cmd.ErrOrStderr(), cfg)
	sim := cfg.Simulate

	album, err := loadCatalog(formatter, cfg.Catalog)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	j, err := openJournal(ctx, cfg.DB, "simulate", album, rootOpts.RunIDs)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), map[string]string{"db": cfg.DB})
		return err
	}
	defer j.close(logger)
	formatter.RunID = j.id()

	reg := prometheus.NewRegistry()
	ix := catalog.NewIndex(album)
	svc := assign.New(ix,
		assign.WithLogger(logger),
		assign.WithMetrics(assign.NewMetrics(reg)),
	)
	j.attach(svc, logger)
	counter := newCompletionCounter()
	svc.Subscribe(counter.handle)

	cards := ix.AllCards()
	if len(cards) == 0 {
		_ = formatter.Error(ErrCodeInputInvalid, "catalog has no cards to assign", map[string]string{"catalog": cfg.Catalog})
		return NewExitError(ExitCommandError, "nothing to simulate")
	}
	logger.Debug("simulation starting", "users", sim.Users, "workers", sim.Workers, "rounds", sim.Rounds, "cards", len(cards))
	start := time.Now()
	if err := simulate(ctx, svc, cards, sim); err != nil {
		return WrapExitError(ExitFailure, "simulation failed", err)
	}
	elapsed := time.Since(start)

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
		formatter.VerboseLog("Wrote metrics to %s", opts.MetricsFile)
	}

	assignments := sim.Workers * sim.Rounds * sim.Users * len(cards)
	result := SimulateResult{
		Users:       sim.Users,
		Workers:     sim.Workers,
		Rounds:      sim.Rounds,
		Sets:        len(album.Sets),
		Cards:       len(cards),
		Assignments: assignments,
		Recorded:    sim.Users * len(cards),
		Duplicates:  assignments - sim.Users*len(cards),
		SetEvents:   counter.total[event.KindSetFinished],
		AlbumEvents: counter.total[event.KindAlbumFinished],
		Violations:  counter.violations(sim.Users, album.SetIDs()),
		ElapsedMS:   elapsed.Milliseconds(),
	}

	if len(result.Violations) > 0 {
		_ = formatter.Error(ErrCodeExactlyOnce,
			fmt.Sprintf("%d exactly-once violations", len(result.Violations)), result)
		return NewExitError(ExitFailure, "exactly-once check failed")
	}
	return formatter.Success(result)
}
