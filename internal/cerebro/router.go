package cerebro

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"token-sniper/internal/domain"
)

// Drop records one profile shed under backpressure. Never silent: drops are
// surfaced in the batch summary. Index is the position within the routed
// batch, so callers can tell shed instances apart when a mint repeats.
type Drop struct {
	Mint          string  `json:"mint"`
	Reason        string  `json:"reason"`
	WeightedScore float64 `json:"weighted_score"`
	Index         int     `json:"-"`
}

// RouteResult is the outcome of one batch dispatch. Decisions align
// one-to-one by mint, in input order, with the profiles that were not shed.
type RouteResult struct {
	Decisions []domain.AIDecision
	Dropped   []Drop
}

// Router dispatches qualifying profiles to the AI gateway through a bounded
// worker pool with a per-request timeout. One bad mint never aborts the
// batch: timeouts and upstream failures become error-shaped decisions.
type Router struct {
	gateway      Gateway
	concurrency  int
	timeout      time.Duration
	queueCeiling int
	logger       *log.Logger
}

// RouterOptions configures a Router.
type RouterOptions struct {
	Gateway      Gateway
	Concurrency  int           // default 8
	Timeout      time.Duration // per-request, default 5s
	QueueCeiling int           // max profiles accepted per batch, default 64
	Logger       *log.Logger
}

// NewRouter creates a Router.
func NewRouter(opts RouterOptions) *Router {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ceiling := opts.QueueCeiling
	if ceiling <= 0 {
		ceiling = 64
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Router{
		gateway:      opts.Gateway,
		concurrency:  concurrency,
		timeout:      timeout,
		queueCeiling: ceiling,
		logger:       logger,
	}
}

// Route dispatches a batch. When the batch exceeds the queue ceiling the
// lowest-weighted profiles are shed first; the kept profiles keep their
// submission order and the output slice is aligned with them regardless of
// network completion order.
func (r *Router) Route(ctx context.Context, profiles []*domain.TokenProfile) *RouteResult {
	kept, dropped := r.shed(profiles)

	results := make([]domain.AIDecision, len(kept))
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for i, p := range kept {
		wg.Add(1)
		go func(i int, p *domain.TokenProfile) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.dispatch(ctx, p)
		}(i, p)
	}
	wg.Wait()

	if len(dropped) > 0 {
		r.logger.Printf("Shed %d of %d profiles under backpressure (queue ceiling %d)",
			len(dropped), len(profiles), r.queueCeiling)
	}

	return &RouteResult{Decisions: results, Dropped: dropped}
}

// dispatch sends one profile with its own timeout and converts any failure
// into an error-shaped decision.
func (r *Router) dispatch(ctx context.Context, p *domain.TokenProfile) domain.AIDecision {
	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	dec, err := r.gateway.Decide(reqCtx, p)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.NewAIDecisionError(p.Mint, domain.DecisionErrTimeout)
		}
		r.logger.Printf("Gateway error for mint %s: %v", p.Mint, err)
		return domain.NewAIDecisionError(p.Mint, domain.DecisionErrUpstream)
	}
	return domain.NewAIDecision(p.Mint, *dec)
}

// shed applies the priority-shedding backpressure policy: if the batch
// exceeds the queue ceiling, drop the lowest weighted_score profiles first.
// The kept subset preserves the original submission order.
func (r *Router) shed(profiles []*domain.TokenProfile) ([]*domain.TokenProfile, []Drop) {
	if len(profiles) <= r.queueCeiling {
		return profiles, nil
	}

	// Rank indices by score ascending; the first len-ceiling are shed.
	indices := make([]int, len(profiles))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return profiles[indices[a]].WeightedScore < profiles[indices[b]].WeightedScore
	})

	shedCount := len(profiles) - r.queueCeiling
	shedSet := make(map[int]bool, shedCount)
	for _, idx := range indices[:shedCount] {
		shedSet[idx] = true
	}

	kept := make([]*domain.TokenProfile, 0, r.queueCeiling)
	dropped := make([]Drop, 0, shedCount)
	for i, p := range profiles {
		if shedSet[i] {
			dropped = append(dropped, Drop{
				Mint:          p.Mint,
				Reason:        domain.DecisionErrShed,
				WeightedScore: p.WeightedScore,
				Index:         i,
			})
			continue
		}
		kept = append(kept, p)
	}
	return kept, dropped
}
