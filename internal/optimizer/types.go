package optimizer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
)

var (
	ErrInvalidFormation    = errors.New("invalid formation")
	ErrDuplicateBaseline   = errors.New("duplicate id in baseline roster")
	ErrUnknownPlayer       = errors.New("unknown player id")
	ErrInvalidChangeBudget = errors.New("change budget must not be negative")
	ErrInvalidTopN         = errors.New("top_n must be positive")
	ErrSolverInvocation    = errors.New("solver invocation failed")
)

// Formation holds required counts in catalog.Positions order: GK, DEF, MID, FWD.
type Formation [4]int

// DefaultFormations are tried in this order; ties keep the earlier shape.
var DefaultFormations = []Formation{
	{1, 4, 4, 2},
	{1, 4, 3, 3},
	{1, 3, 5, 2},
	{1, 4, 5, 1},
	{1, 3, 4, 3},
	{1, 5, 4, 1},
	{1, 5, 3, 2},
}

// Count returns the required count for pos, zero for out-of-enum positions.
func (f Formation) Count(pos catalog.Position) int {
	if i := pos.Index(); i >= 0 {
		return f[i]
	}
	return 0
}

// Size is the total number of players the formation asks for.
func (f Formation) Size() int {
	return f[0] + f[1] + f[2] + f[3]
}

// String renders the outfield shape, e.g. "4-4-2". A formation with other
// than one goalkeeper is prefixed with the goalkeeper count: "2-4-4-2".
func (f Formation) String() string {
	if f[0] == 1 {
		return fmt.Sprintf("%d-%d-%d", f[1], f[2], f[3])
	}
	return fmt.Sprintf("%d-%d-%d-%d", f[0], f[1], f[2], f[3])
}

func (f Formation) Validate() error {
	for i, n := range f {
		if n < 0 {
			return fmt.Errorf("%w: %s count %d", ErrInvalidFormation, catalog.Positions[i], n)
		}
	}
	return nil
}

// ParseFormation accepts "D-M-F" (one goalkeeper implied) or "G-D-M-F".
func ParseFormation(s string) (Formation, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	var counts []int
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Formation{}, fmt.Errorf("%w: %q", ErrInvalidFormation, s)
		}
		counts = append(counts, n)
	}

	var f Formation
	switch len(counts) {
	case 3:
		f = Formation{1, counts[0], counts[1], counts[2]}
	case 4:
		f = Formation{counts[0], counts[1], counts[2], counts[3]}
	default:
		return Formation{}, fmt.Errorf("%w: %q", ErrInvalidFormation, s)
	}
	if err := f.Validate(); err != nil {
		return Formation{}, err
	}
	return f, nil
}

// ParseFormations parses each entry; an empty list yields DefaultFormations.
func ParseFormations(specs []string) ([]Formation, error) {
	if len(specs) == 0 {
		return DefaultFormations, nil
	}
	out := make([]Formation, 0, len(specs))
	for _, s := range specs {
		f, err := ParseFormation(s)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Evolution turns a fresh pick into a bounded set of changes to Baseline.
type Evolution struct {
	Baseline     []string `json:"baseline"`
	ChangeBudget int      `json:"max_changes"`
	// ForcedExclusion, when set, must not be selected and does not count
	// against ChangeBudget.
	ForcedExclusion string `json:"force_replace,omitempty"`
}

// Result is one solved roster. The zero value is the sentinel for "no
// optimal roster" and is not an error.
type Result struct {
	Selected   []string `json:"selected"`
	TotalCost  float64  `json:"total_cost"`
	TotalScore float64  `json:"total_score"`
}

// Feasible reports whether the result carries a roster.
func (r Result) Feasible() bool {
	return len(r.Selected) > 0
}

type FormationResult struct {
	Formation  Formation `json:"formation"`
	Name       string    `json:"name"`
	TotalScore float64   `json:"total_score"`
	Result     Result    `json:"result"`
}

// Comparison is the outcome of trying several formations. Results follow the
// input order; Best is nil when no formation produced a roster.
type Comparison struct {
	Results []FormationResult `json:"results"`
	Best    *FormationResult  `json:"best,omitempty"`
}

// ProgressUpdate is emitted after each formation is solved.
type ProgressUpdate struct {
	Index     int             `json:"index"`
	Total     int             `json:"total"`
	Formation string          `json:"formation"`
	Result    FormationResult `json:"result"`
	BestSoFar string          `json:"best_so_far,omitempty"`
	BestScore float64         `json:"best_score"`
	Elapsed   time.Duration   `json:"elapsed"`
}

// GroupCounts are per-position group sizes for enumeration.
type GroupCounts struct {
	Forwards    int `json:"fwds"`
	Midfielders int `json:"mids"`
	Defenders   int `json:"defs"`
	Goalkeepers int `json:"gks"`
}

func (c GroupCounts) Validate() error {
	if c.Forwards < 0 || c.Midfielders < 0 || c.Defenders < 0 || c.Goalkeepers < 0 {
		return fmt.Errorf("%w: negative group count %+v", ErrInvalidFormation, c)
	}
	return nil
}

// Group is one enumerated candidate; IDs are ordered FWD, MID, DEF, GK.
type Group struct {
	IDs        []string `json:"ids"`
	TotalCost  float64  `json:"total_cost"`
	TotalScore float64  `json:"total_score"`
}
