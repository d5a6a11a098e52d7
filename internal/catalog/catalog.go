// Package catalog holds the player pool a roster is selected from.
//
// A Catalog is built once from raw records and is read-only afterwards. Every
// player is addressable by id; only players whose position is one of the four
// canonical positions appear in the per-position index, so a player with any
// other position can be looked up but never fills a position slot.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Position is a player's on-field role.
type Position string

const (
	Goalkeeper Position = "GK"
	Defender   Position = "DEF"
	Midfielder Position = "MID"
	Forward    Position = "FWD"
)

// Positions lists the indexed positions in canonical order. Formation counts
// follow the same order.
var Positions = [4]Position{Goalkeeper, Defender, Midfielder, Forward}

// Valid reports whether p is one of the canonical positions.
func (p Position) Valid() bool {
	switch p {
	case Goalkeeper, Defender, Midfielder, Forward:
		return true
	}
	return false
}

// Index returns the canonical slot of p, or -1 for an out-of-enum position.
func (p Position) Index() int {
	for i, pos := range Positions {
		if pos == p {
			return i
		}
	}
	return -1
}

var (
	ErrMissingField  = errors.New("missing required field")
	ErrInvalidNumber = errors.New("invalid numeric value")
	ErrNegativeCost  = errors.New("cost must not be negative")
)

// ValidationError reports a malformed record. Row is the zero-based record
// index passed to New.
type ValidationError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("record %d: %s: %v", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("record %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Record is a raw, unvalidated player row.
type Record struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Position string `json:"position"`
	Cost     string `json:"cost"`
	Score    string `json:"score"`
}

// Player is an immutable catalog entry.
type Player struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Cost     float64  `json:"cost"`
	Score    float64  `json:"score"`
}

// Catalog indexes players by id and by position.
type Catalog struct {
	players    map[string]Player
	order      []string
	byPosition map[Position][]string
}

// New validates records and builds a catalog. A later record with an id seen
// before replaces the earlier one, including its position index entry; this
// is the defined behavior for repeated ids, not an error.
func New(records []Record) (*Catalog, error) {
	c := &Catalog{
		players:    make(map[string]Player, len(records)),
		order:      make([]string, 0, len(records)),
		byPosition: make(map[Position][]string, len(Positions)),
	}

	for i, rec := range records {
		player, err := parseRecord(i, rec)
		if err != nil {
			return nil, err
		}
		c.add(player)
	}

	return c, nil
}

// FromPlayers builds a catalog from already typed players, applying the same
// cost rule as New.
func FromPlayers(players []Player) (*Catalog, error) {
	c := &Catalog{
		players:    make(map[string]Player, len(players)),
		order:      make([]string, 0, len(players)),
		byPosition: make(map[Position][]string, len(Positions)),
	}
	for i, p := range players {
		if p.ID == "" {
			return nil, &ValidationError{Row: i, Field: "id", Err: ErrMissingField}
		}
		if p.Position == "" {
			return nil, &ValidationError{Row: i, Field: "position", Err: ErrMissingField}
		}
		if p.Cost < 0 {
			return nil, &ValidationError{Row: i, Field: "cost", Value: strconv.FormatFloat(p.Cost, 'f', -1, 64), Err: ErrNegativeCost}
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		c.add(p)
	}
	return c, nil
}

func parseRecord(row int, rec Record) (Player, error) {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return Player{}, &ValidationError{Row: row, Field: "id", Err: ErrMissingField}
	}
	position := strings.TrimSpace(rec.Position)
	if position == "" {
		return Player{}, &ValidationError{Row: row, Field: "position", Err: ErrMissingField}
	}

	cost, err := parseNumber(row, "cost", rec.Cost)
	if err != nil {
		return Player{}, err
	}
	if cost < 0 {
		return Player{}, &ValidationError{Row: row, Field: "cost", Value: rec.Cost, Err: ErrNegativeCost}
	}
	score, err := parseNumber(row, "score", rec.Score)
	if err != nil {
		return Player{}, err
	}

	name := rec.Name
	if name == "" {
		name = id
	}

	return Player{
		ID:       id,
		Name:     name,
		Position: Position(position),
		Cost:     cost,
		Score:    score,
	}, nil
}

func parseNumber(row int, field, raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, &ValidationError{Row: row, Field: field, Err: ErrMissingField}
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ValidationError{Row: row, Field: field, Value: raw, Err: ErrInvalidNumber}
	}
	return f, nil
}

func (c *Catalog) add(p Player) {
	if prev, exists := c.players[p.ID]; exists {
		c.removeFromIndex(prev)
	} else {
		c.order = append(c.order, p.ID)
	}
	c.players[p.ID] = p
	if p.Position.Valid() {
		c.byPosition[p.Position] = append(c.byPosition[p.Position], p.ID)
	}
}

func (c *Catalog) removeFromIndex(p Player) {
	ids := c.byPosition[p.Position]
	for i, id := range ids {
		if id == p.ID {
			c.byPosition[p.Position] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// Player looks up a player by id.
func (c *Catalog) Player(id string) (Player, bool) {
	p, ok := c.players[id]
	return p, ok
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.players[id]
	return ok
}

// Len returns the number of distinct players.
func (c *Catalog) Len() int {
	return len(c.players)
}

// IDs returns every id in first-seen order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// ByPosition returns the ids indexed under pos, in first-seen order. Out-of-enum
// positions always yield an empty slice.
func (c *Catalog) ByPosition(pos Position) []string {
	ids := c.byPosition[pos]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Indexed reports whether id is selectable through a position index.
func (c *Catalog) Indexed(id string) bool {
	p, ok := c.players[id]
	return ok && p.Position.Valid()
}

// Totals sums cost and score over ids. Unknown ids contribute nothing.
func (c *Catalog) Totals(ids []string) (cost, score float64) {
	for _, id := range ids {
		if p, ok := c.players[id]; ok {
			cost += p.Cost
			score += p.Score
		}
	}
	return cost, score
}
