package optimizer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
)

func forwardsCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.FromPlayers([]catalog.Player{
		{ID: "f3", Position: catalog.Forward, Cost: 3, Score: 2},
		{ID: "f4", Position: catalog.Forward, Cost: 4, Score: 3},
		{ID: "f5", Position: catalog.Forward, Cost: 5, Score: 4},
	})
	require.NoError(t, err)
	return cat
}

func TestEnumerateGroups_Example(t *testing.T) {
	top, err := EnumerateGroups(forwardsCatalog(t), GroupCounts{Forwards: 2}, 8, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)

	assert.Equal(t, []string{"f3", "f5"}, top[0].IDs)
	assert.InDelta(t, 8.0, top[0].TotalCost, 1e-9)
	assert.InDelta(t, 6.0, top[0].TotalScore, 1e-9)

	assert.Equal(t, []string{"f3", "f4"}, top[1].IDs)
	assert.InDelta(t, 7.0, top[1].TotalCost, 1e-9)
	assert.InDelta(t, 5.0, top[1].TotalScore, 1e-9)
}

func TestGroups_PrunesOverBudget(t *testing.T) {
	var got [][]string
	for g := range Groups(forwardsCatalog(t), GroupCounts{Forwards: 2}, 8) {
		got = append(got, g.IDs)
	}
	assert.Equal(t, [][]string{{"f3", "f4"}, {"f3", "f5"}}, got)
}

func TestGroups_NestingOrderAndFreshSequences(t *testing.T) {
	cat, err := catalog.FromPlayers([]catalog.Player{
		{ID: "gk1", Position: catalog.Goalkeeper, Cost: 1, Score: 1},
		{ID: "gk2", Position: catalog.Goalkeeper, Cost: 1, Score: 2},
		{ID: "def", Position: catalog.Defender, Cost: 1, Score: 1},
		{ID: "mid", Position: catalog.Midfielder, Cost: 1, Score: 1},
		{ID: "fwd", Position: catalog.Forward, Cost: 1, Score: 1},
	})
	require.NoError(t, err)
	counts := GroupCounts{Forwards: 1, Midfielders: 1, Defenders: 1, Goalkeepers: 1}

	seq := Groups(cat, counts, 10)
	var first []Group
	for g := range seq {
		first = append(first, g)
		break
	}
	require.Len(t, first, 1)
	assert.Equal(t, []string{"fwd", "mid", "def", "gk1"}, first[0].IDs)

	// A fresh call starts over regardless of the abandoned one.
	var all []Group
	for g := range Groups(cat, counts, 10) {
		all = append(all, g)
	}
	require.Len(t, all, 2)
	assert.Equal(t, []string{"fwd", "mid", "def", "gk2"}, all[1].IDs)
	assert.InDelta(t, 5.0, all[1].TotalScore, 1e-9)
}

func TestGroups_CountLargerThanPool(t *testing.T) {
	n := 0
	for range Groups(forwardsCatalog(t), GroupCounts{Forwards: 4}, 100) {
		n++
	}
	assert.Zero(t, n)
}

func TestEnumerateGroups_Properties(t *testing.T) {
	cat := squadCatalog(t)
	counts := GroupCounts{Forwards: 2, Midfielders: 2, Defenders: 2, Goalkeepers: 1}
	budget := 36.0

	top, err := EnumerateGroups(cat, counts, budget, 5)
	require.NoError(t, err)
	require.NotEmpty(t, top)
	assert.LessOrEqual(t, len(top), 5)

	for i, g := range top {
		assert.Len(t, g.IDs, 7)
		assert.LessOrEqual(t, g.TotalCost, budget)
		cost, score := cat.Totals(g.IDs)
		assert.InDelta(t, cost, g.TotalCost, 1e-9)
		assert.InDelta(t, score, g.TotalScore, 1e-9)
		if i > 0 {
			assert.GreaterOrEqual(t, top[i-1].TotalScore, g.TotalScore)
		}
	}

	// The head of the list is the true best over the full sequence.
	best := 0.0
	for g := range Groups(cat, counts, budget) {
		if g.TotalScore > best {
			best = g.TotalScore
		}
	}
	assert.InDelta(t, best, top[0].TotalScore, 1e-9)
}

func TestTopGroups_StableOnTies(t *testing.T) {
	groups := []Group{
		{IDs: []string{"a"}, TotalCost: 1, TotalScore: 5},
		{IDs: []string{"b"}, TotalCost: 1, TotalScore: 7},
		{IDs: []string{"c"}, TotalCost: 1, TotalScore: 5},
		{IDs: []string{"d"}, TotalCost: 9, TotalScore: 50},
		{IDs: []string{"e"}, TotalCost: 1, TotalScore: 6},
	}
	seq := func(yield func(Group) bool) {
		for _, g := range groups {
			if !yield(g) {
				return
			}
		}
	}

	top, err := TopGroups(seq, 5, 3)
	require.NoError(t, err)
	var ids []string
	for _, g := range top {
		ids = append(ids, g.IDs[0])
	}
	assert.Equal(t, []string{"b", "e", "a"}, ids)
}

func TestEnumerateGroups_InvalidInput(t *testing.T) {
	_, err := EnumerateGroups(forwardsCatalog(t), GroupCounts{Forwards: 1}, 8, 0)
	assert.ErrorIs(t, err, ErrInvalidTopN)

	_, err = EnumerateGroups(forwardsCatalog(t), GroupCounts{Forwards: -1}, 8, 1)
	assert.ErrorIs(t, err, ErrInvalidFormation)
}

func TestCombinations(t *testing.T) {
	var got [][]int
	for idx := range combinations(4, 2) {
		got = append(got, append([]int(nil), idx...))
	}
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}, got)

	n := 0
	for range combinations(3, 0) {
		n++
	}
	assert.Equal(t, 1, n)
}

func midfieldCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	players := make([]catalog.Player, n)
	for i := range players {
		players[i] = catalog.Player{ID: fmt.Sprintf("m%02d", i), Position: catalog.Midfielder, Cost: 1, Score: float64(i)}
	}
	cat, err := catalog.FromPlayers(players)
	require.NoError(t, err)
	return cat
}

func TestEnumerateGroupsContext_StopsOnCancel(t *testing.T) {
	cat := midfieldCatalog(t, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := EnumerateGroupsContext(ctx, cat, GroupCounts{Midfielders: 8}, 100, 3)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("enumeration ignored a cancelled context")
	}
}

func TestGroupsContext_StopsWhenEverythingIsPruned(t *testing.T) {
	cat := midfieldCatalog(t, 50)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan int, 1)
	go func() {
		n := 0
		// Budget 0 prunes every combination, so nothing is ever yielded.
		for range GroupsContext(ctx, cat, GroupCounts{Midfielders: 8}, 0) {
			n++
		}
		done <- n
	}()
	select {
	case n := <-done:
		assert.Zero(t, n)
	case <-time.After(5 * time.Second):
		t.Fatal("pruned search ignored its deadline")
	}
}

func TestTopGroupsContext_CompletesWithLiveContext(t *testing.T) {
	top, err := TopGroupsContext(context.Background(), Groups(forwardsCatalog(t), GroupCounts{Forwards: 2}, 8), 8, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, []string{"f3", "f5"}, top[0].IDs)
}
