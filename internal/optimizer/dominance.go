package optimizer

import (
	"github.com/stitts-dev/squad-optimizer/internal/catalog"
)

// dominates reports whether q is at least as cheap and at least as good as p,
// with catalog order breaking exact ties so the relation stays a strict order.
func dominates(q, p catalog.Player, qIdx, pIdx int) bool {
	if q.Cost > p.Cost || q.Score < p.Score {
		return false
	}
	return q.Cost < p.Cost || q.Score > p.Score || qIdx < pIdx
}

// dominatedPlayers returns the ids at pos that need never be picked when the
// formation asks for k of them: at least k other selectable players at pos
// dominate each one. Any roster using such a player can swap it for an
// unpicked dominator without raising cost or lowering score, and each swap
// moves to a player with strictly fewer dominators, so an optimal roster
// exists without them. Protected ids (the effective baseline) are never
// returned because swapping them out would cost retention; they still count
// as dominators. The excluded id neither counts nor is returned.
func dominatedPlayers(cat *catalog.Catalog, pos catalog.Position, k int, protected map[string]bool, excluded string) []string {
	ids := cat.ByPosition(pos)
	players := make([]catalog.Player, 0, len(ids))
	order := make([]int, 0, len(ids))
	for i, id := range ids {
		if id == excluded {
			continue
		}
		p, _ := cat.Player(id)
		players = append(players, p)
		order = append(order, i)
	}

	var out []string
	for i, p := range players {
		if protected[p.ID] {
			continue
		}
		n := 0
		for j, q := range players {
			if i != j && dominates(q, p, order[j], order[i]) {
				n++
				if n >= k {
					break
				}
			}
		}
		if n >= k {
			out = append(out, p.ID)
		}
	}
	return out
}
