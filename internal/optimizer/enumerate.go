package optimizer

import (
	"context"
	"fmt"
	"iter"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/metrics"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

type enumLevel struct {
	ids   []string
	cost  []float64
	score []float64
	k     int
}

// Groups lazily enumerates every group with the requested per-position sizes
// whose total cost fits budget. Positions nest forwards outermost, then
// midfielders, defenders, goalkeepers; a branch is cut as soon as the cost of
// the players fixed so far exceeds budget.
//
// There is no guard on the size of the search: the number of raw
// combinations grows as the product of binomials over the four positions, and
// callers asking for large counts over a large catalog get what they ask for.
//
// Each call returns an independent single-pass sequence. Stopping early
// leaves nothing behind.
func Groups(cat *catalog.Catalog, counts GroupCounts, budget float64) iter.Seq[Group] {
	return GroupsContext(context.Background(), cat, counts, budget)
}

// ctxCheckEvery is how many combinations are visited between ctx checks.
const ctxCheckEvery = 1 << 12

// GroupsContext is Groups that ends the sequence once ctx is done. Pruned
// combinations count toward the check interval, so a search that yields
// nothing still stops.
func GroupsContext(ctx context.Context, cat *catalog.Catalog, counts GroupCounts, budget float64) iter.Seq[Group] {
	order := []struct {
		pos catalog.Position
		k   int
	}{
		{catalog.Forward, counts.Forwards},
		{catalog.Midfielder, counts.Midfielders},
		{catalog.Defender, counts.Defenders},
		{catalog.Goalkeeper, counts.Goalkeepers},
	}

	levels := make([]enumLevel, len(order))
	for i, o := range order {
		ids := cat.ByPosition(o.pos)
		lvl := enumLevel{ids: ids, k: o.k, cost: make([]float64, len(ids)), score: make([]float64, len(ids))}
		for j, id := range ids {
			p, _ := cat.Player(id)
			lvl.cost[j] = p.Cost
			lvl.score[j] = p.Score
		}
		levels[i] = lvl
	}

	return func(yield func(Group) bool) {
		picked := make([]string, 0, counts.Forwards+counts.Midfielders+counts.Defenders+counts.Goalkeepers)
		produced := 0
		visited := 0
		defer func() { metrics.AddGroupsEvaluated(produced) }()

		var descend func(level int, cost, score float64) bool
		descend = func(level int, cost, score float64) bool {
			if level == len(levels) {
				produced++
				ids := make([]string, len(picked))
				copy(ids, picked)
				return yield(Group{IDs: ids, TotalCost: cost, TotalScore: score})
			}
			lvl := levels[level]
			for idx := range combinations(len(lvl.ids), lvl.k) {
				visited++
				if visited%ctxCheckEvery == 0 && ctx.Err() != nil {
					return false
				}
				c, s := cost, score
				for _, j := range idx {
					c += lvl.cost[j]
					s += lvl.score[j]
				}
				if c > budget {
					continue
				}
				mark := len(picked)
				for _, j := range idx {
					picked = append(picked, lvl.ids[j])
				}
				ok := descend(level+1, c, s)
				picked = picked[:mark]
				if !ok {
					return false
				}
			}
			return true
		}
		descend(0, 0, 0)
	}
}

// combinations yields k-subsets of [0, n) in lexicographic order. The yielded
// slice is reused between iterations.
func combinations(n, k int) iter.Seq[[]int] {
	return func(yield func([]int) bool) {
		if k < 0 || k > n {
			return
		}
		idx := make([]int, k)
		for i := range idx {
			idx[i] = i
		}
		for {
			if !yield(idx) {
				return
			}
			i := k - 1
			for i >= 0 && idx[i] == n-k+i {
				i--
			}
			if i < 0 {
				return
			}
			idx[i]++
			for j := i + 1; j < k; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}

// TopGroups drains seq and keeps at most topN groups within budget, ordered by
// score descending. A new group only displaces a kept one with a strictly
// lower score, so earlier groups win ties.
func TopGroups(seq iter.Seq[Group], budget float64, topN int) ([]Group, error) {
	return TopGroupsContext(context.Background(), seq, budget, topN)
}

// TopGroupsContext is TopGroups that stops draining once ctx is done and
// returns ctx's error instead of a partial list.
func TopGroupsContext(ctx context.Context, seq iter.Seq[Group], budget float64, topN int) ([]Group, error) {
	if topN <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}

	top := make([]Group, 0, topN)
	seen := 0
	for g := range seq {
		seen++
		if seen%ctxCheckEvery == 0 && ctx.Err() != nil {
			break
		}
		if g.TotalCost > budget {
			continue
		}
		if len(top) == topN && g.TotalScore <= top[len(top)-1].TotalScore {
			continue
		}
		at := len(top)
		for at > 0 && top[at-1].TotalScore < g.TotalScore {
			at--
		}
		top = append(top, Group{})
		copy(top[at+1:], top[at:])
		top[at] = g
		if len(top) > topN {
			top = top[:topN]
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return top, nil
}

// EnumerateGroups returns the topN best groups for counts under budget.
func EnumerateGroups(cat *catalog.Catalog, counts GroupCounts, budget float64, topN int) ([]Group, error) {
	return EnumerateGroupsContext(context.Background(), cat, counts, budget, topN)
}

// EnumerateGroupsContext is EnumerateGroups bounded by ctx.
func EnumerateGroupsContext(ctx context.Context, cat *catalog.Catalog, counts GroupCounts, budget float64, topN int) ([]Group, error) {
	if err := counts.Validate(); err != nil {
		return nil, err
	}
	if topN <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	top, err := TopGroupsContext(ctx, GroupsContext(ctx, cat, counts, budget), budget, topN)
	if err != nil {
		return nil, err
	}
	logger.WithComponent("enumeration").WithField("kept", len(top)).Debug("Enumeration finished")
	return top, nil
}
