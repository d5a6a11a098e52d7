package solver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLP(t *testing.T) {
	m := keeperDefenderModel(10)
	m.FixZero(0)

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))
	out := buf.String()

	assert.Contains(t, out, "Maximize\n obj: + 2 x0 + 5 x1 + 3 x2 + 6 x3\n")
	assert.Contains(t, out, " budget: + 4 x0 + 4.5 x1 + 5 x2 + 5.5 x3 <= 10\n")
	assert.Contains(t, out, " pos_GK: + 1 x0 + 1 x1 = 1\n")
	assert.Contains(t, out, " fix_x0: x0 = 0\n")
	assert.Contains(t, out, "Binaries\n x0\n x1\n x2\n x3\n")
	assert.True(t, strings.HasSuffix(out, "End\n"))
}

func TestWriteLP_NegativeCoefficients(t *testing.T) {
	m := NewModel("neg")
	m.AddBinary("a")
	m.AddConstraint("", []Term{{0, -2.5}}, GreaterEqual, -3)
	m.Maximize([]Term{{0, -1}})

	var buf bytes.Buffer
	require.NoError(t, WriteLP(&buf, m))
	assert.Contains(t, buf.String(), " c0: - 2.5 x0 >= -3\n")
	assert.Contains(t, buf.String(), " obj: - 1 x0\n")
}

func TestParseSolution(t *testing.T) {
	m := keeperDefenderModel(10)

	tests := []struct {
		name   string
		input  string
		status Status
		values []float64
	}{
		{
			name:   "optimal",
			input:  "Optimal - objective value 11.00000000\n      1 x1  1  0\n      3 x3  1  0\n",
			status: StatusOptimal,
			values: []float64{0, 1, 0, 1},
		},
		{
			name:   "optimal with flagged rows and noise",
			input:  "Optimal - objective value 11\n**    1 x1  0.9999999  0\n      3 x3  1.0000001  0\n      9 junk 1 0\n",
			status: StatusOptimal,
			values: []float64{0, 1, 0, 1},
		},
		{name: "infeasible", input: "Infeasible - objective value 0\n", status: StatusInfeasible},
		{name: "integer infeasible", input: "Integer infeasible - objective value 0\n", status: StatusInfeasible},
		{name: "unbounded", input: "Unbounded - objective value 0\n", status: StatusUnbounded},
		{name: "stopped", input: "Stopped on time - objective value 9\n   1 x1 1 0\n", status: StatusNotSolved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sol, err := ParseSolution(strings.NewReader(tt.input), m)
			require.NoError(t, err)
			assert.Equal(t, tt.status, sol.Status)
			assert.Equal(t, tt.values, sol.Values)
			if tt.status == StatusOptimal {
				assert.InDelta(t, 11.0, sol.Objective, 1e-9)
			}
		})
	}
}

func TestParseSolution_Errors(t *testing.T) {
	m := keeperDefenderModel(10)

	_, err := ParseSolution(strings.NewReader(""), m)
	assert.Error(t, err)

	_, err = ParseSolution(strings.NewReader("Optimal\n 0 x0 abc 0\n"), m)
	assert.Error(t, err)
}

// fakeCBC writes a shell script that copies solution into the -solu target.
func fakeCBC(t *testing.T, solution string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	solFile := filepath.Join(dir, "canned.sol")
	require.NoError(t, os.WriteFile(solFile, []byte(solution), 0o644))

	script := `#!/bin/sh
prev=""
for arg in "$@"; do
  if [ "$prev" = "-solu" ]; then
    cp "` + solFile + `" "$arg"
  fi
  prev="$arg"
done
echo "fake cbc"
exit ` + strconv.Itoa(exitCode) + "\n"

	path := filepath.Join(dir, "cbc")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestCBCEngine_Solve(t *testing.T) {
	path := fakeCBC(t, "Optimal - objective value 11\n 1 x1 1 0\n 3 x3 1 0\n", 0)
	e := NewCBCEngine(path)
	e.TempDir = t.TempDir()

	sol, err := e.Solve(context.Background(), keeperDefenderModel(10))
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, []float64{0, 1, 0, 1}, sol.Values)
	assert.InDelta(t, 11.0, sol.Objective, 1e-9)

	entries, err := os.ReadDir(e.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "work dir is removed")
}

func TestCBCEngine_Infeasible(t *testing.T) {
	e := NewCBCEngine(fakeCBC(t, "Infeasible - objective value 0\n", 0))
	e.TempDir = t.TempDir()

	sol, err := e.Solve(context.Background(), keeperDefenderModel(1))
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestCBCEngine_ProcessFailure(t *testing.T) {
	e := NewCBCEngine(fakeCBC(t, "", 3))
	e.TempDir = t.TempDir()

	_, err := e.Solve(context.Background(), keeperDefenderModel(10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cbc: run")
}

func TestCBCEngine_MissingBinary(t *testing.T) {
	e := NewCBCEngine(filepath.Join(t.TempDir(), "no-such-cbc"))
	_, err := e.Solve(context.Background(), keeperDefenderModel(10))
	assert.Error(t, err)
}

func TestNewCBCEngine_DefaultPath(t *testing.T) {
	assert.Equal(t, "cbc", NewCBCEngine("").Path)
}
