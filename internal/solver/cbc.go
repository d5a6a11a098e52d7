package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/squad-optimizer/pkg/logger"
)

// CBCEngine hands the model to an external COIN-OR CBC binary through an LP
// file and reads back its solution file.
type CBCEngine struct {
	Path    string
	TempDir string
	logger  *logrus.Entry
}

func NewCBCEngine(path string) *CBCEngine {
	if path == "" {
		path = "cbc"
	}
	return &CBCEngine{
		Path:   path,
		logger: logger.WithComponent("cbc_engine"),
	}
}

func (e *CBCEngine) Name() string {
	return "cbc"
}

func (e *CBCEngine) Solve(ctx context.Context, m *Model) (Solution, error) {
	if err := m.Validate(); err != nil {
		return Solution{}, err
	}

	dir, err := os.MkdirTemp(e.TempDir, "cbc-")
	if err != nil {
		return Solution{}, fmt.Errorf("cbc: create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "model.sol")

	f, err := os.Create(lpPath)
	if err != nil {
		return Solution{}, fmt.Errorf("cbc: create lp file: %w", err)
	}
	if err := WriteLP(f, m); err != nil {
		f.Close()
		return Solution{}, fmt.Errorf("cbc: write lp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Solution{}, fmt.Errorf("cbc: write lp file: %w", err)
	}

	args := []string{lpPath}
	if deadline, ok := ctx.Deadline(); ok {
		secs := int(math.Ceil(time.Until(deadline).Seconds()))
		if secs < 1 {
			secs = 1
		}
		args = append(args, "-sec", strconv.Itoa(secs))
	}
	args = append(args, "-solve", "-solu", solPath)

	start := time.Now()
	cmd := exec.CommandContext(ctx, e.Path, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Solution{}, ctxErr
		}
		e.logger.WithFields(logrus.Fields{
			"path":   e.Path,
			"output": truncate(string(out), 512),
		}).WithError(err).Error("CBC process failed")
		return Solution{}, fmt.Errorf("cbc: run %s: %w", e.Path, err)
	}

	sol, err := os.Open(solPath)
	if err != nil {
		return Solution{}, fmt.Errorf("cbc: read solution: %w", err)
	}
	defer sol.Close()

	solution, err := ParseSolution(sol, m)
	if err != nil {
		return Solution{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"model":       m.Name,
		"variables":   len(m.Vars),
		"status":      solution.Status.String(),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("CBC finished")

	return solution, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func lpVarName(i int) string {
	return "x" + strconv.Itoa(i)
}

// WriteLP writes m in CPLEX LP format. Variables are named x0..xN-1 so names
// from the model never have to be escaped. Variables fixed to a value are
// pinned with an equality row rather than a bound.
func WriteLP(w io.Writer, m *Model) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "\\* %s *\\\n", m.Name)
	bw.WriteString("Maximize\n")
	bw.WriteString(" obj:")
	writeTerms(bw, m.Objective)
	bw.WriteString("\n")

	bw.WriteString("Subject To\n")
	for i, c := range m.Constraints {
		name := c.Name
		if name == "" {
			name = "c" + strconv.Itoa(i)
		}
		fmt.Fprintf(bw, " %s:", name)
		writeTerms(bw, c.Terms)
		fmt.Fprintf(bw, " %s %s\n", c.Sense, formatFloat(c.RHS))
	}
	for i, v := range m.Vars {
		if v.Fixed() {
			fmt.Fprintf(bw, " fix_%s: %s = %s\n", lpVarName(i), lpVarName(i), formatFloat(v.Lower))
		}
	}

	if len(m.Vars) > 0 {
		bw.WriteString("Binaries\n")
		for i := range m.Vars {
			fmt.Fprintf(bw, " %s\n", lpVarName(i))
		}
	}
	bw.WriteString("End\n")
	return bw.Flush()
}

func writeTerms(w *bufio.Writer, terms []Term) {
	if len(terms) == 0 {
		// LP files reject an empty expression.
		w.WriteString(" 0 x0")
		return
	}
	for _, t := range terms {
		sign := "+"
		coef := t.Coef
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		fmt.Fprintf(w, " %s %s %s", sign, formatFloat(coef), lpVarName(t.Var))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 12, 64)
}

var errEmptySolution = errors.New("cbc: empty solution file")

// ParseSolution reads a CBC solution file. The first word of the header line
// decides the status; variables missing from the listing are zero.
func ParseSolution(r io.Reader, m *Model) (Solution, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Solution{}, fmt.Errorf("cbc: read solution: %w", err)
		}
		return Solution{}, errEmptySolution
	}
	header := strings.Fields(scanner.Text())
	if len(header) == 0 {
		return Solution{}, errEmptySolution
	}

	var status Status
	switch header[0] {
	case "Optimal":
		status = StatusOptimal
	case "Infeasible", "Integer":
		status = StatusInfeasible
	case "Unbounded":
		status = StatusUnbounded
	default:
		status = StatusNotSolved
	}

	values := make([]float64, len(m.Vars))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		name := fields[1]
		if !strings.HasPrefix(name, "x") {
			continue
		}
		idx, err := strconv.Atoi(name[1:])
		if err != nil || idx < 0 || idx >= len(values) {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("cbc: bad value for %s: %w", name, err)
		}
		values[idx] = v
	}
	if err := scanner.Err(); err != nil {
		return Solution{}, fmt.Errorf("cbc: read solution: %w", err)
	}

	if status != StatusOptimal {
		return Solution{Status: status}, nil
	}
	for i, v := range values {
		values[i] = math.Round(v)
	}
	return Solution{Status: status, Values: values, Objective: m.Evaluate(values)}, nil
}
