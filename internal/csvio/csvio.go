// Package csvio reads player and team files and writes team sheets,
// formation summaries and enumeration results as CSV.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/stitts-dev/squad-optimizer/internal/catalog"
	"github.com/stitts-dev/squad-optimizer/internal/optimizer"
)

// Player file columns.
const (
	ColumnName     = "Name"
	ColumnPosition = "Position"
	ColumnPrice    = "Price number"
	ColumnPoints   = "Points total"
	ColumnNames    = "Names"
)

// Trailer rows of a team sheet.
const (
	rowTotal     = "Total"
	rowFormation = "Formation"
)

var ErrMissingColumn = errors.New("missing column")

// SanitizeName turns a display name into a player id.
func SanitizeName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
}

// decode returns UTF-8 input unchanged and treats anything else as Windows-1252,
// which is what spreadsheet exports usually produce.
func decode(r io.Reader) (io.Reader, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return bytes.NewReader(raw), nil
	}
	return charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(raw)), nil
}

func readTable(r io.Reader, required ...string) ([][]string, map[string]int, error) {
	in, err := decode(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(h)] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, cols, nil
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadPlayers reads a player file into raw catalog records. Ids are sanitized
// names; validation is left to catalog.New.
func ReadPlayers(r io.Reader) ([]catalog.Record, error) {
	rows, cols, err := readTable(r, ColumnName, ColumnPosition, ColumnPrice, ColumnPoints)
	if err != nil {
		return nil, err
	}

	records := make([]catalog.Record, 0, len(rows))
	for _, row := range rows {
		name := field(row, cols, ColumnName)
		records = append(records, catalog.Record{
			ID:       SanitizeName(name),
			Name:     name,
			Position: field(row, cols, ColumnPosition),
			Cost:     field(row, cols, ColumnPrice),
			Score:    field(row, cols, ColumnPoints),
		})
	}
	return records, nil
}

// ReadBaseline reads a team sheet back into a list of ids. Goalkeeper rows
// carry one name, other rows a comma-separated list. The Total and Formation
// rows are skipped by their Position cell, so hyphenated names survive.
func ReadBaseline(r io.Reader) ([]string, error) {
	rows, cols, err := readTable(r, ColumnPosition, ColumnNames)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, row := range rows {
		position := field(row, cols, ColumnPosition)
		if strings.EqualFold(position, rowTotal) || strings.EqualFold(position, rowFormation) {
			continue
		}
		names := field(row, cols, ColumnNames)
		var parts []string
		if strings.HasPrefix(position, string(catalog.Goalkeeper)) {
			parts = []string{names}
		} else {
			parts = strings.Split(names, ",")
		}
		for _, p := range parts {
			id := SanitizeName(p)
			if id == "" || isDigits(id) {
				continue
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPoints(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteTeamSheet writes one row per position with the selected display names,
// then Total and Formation rows. An empty result yields a sheet with empty
// position rows.
func WriteTeamSheet(w io.Writer, cat *catalog.Catalog, formation optimizer.Formation, res optimizer.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnPosition, ColumnNames, "Values", "Points"}); err != nil {
		return err
	}

	byPos := make(map[catalog.Position][]catalog.Player, len(catalog.Positions))
	for _, id := range res.Selected {
		if p, ok := cat.Player(id); ok {
			byPos[p.Position] = append(byPos[p.Position], p)
		}
	}

	for i, pos := range catalog.Positions {
		var names, values, points []string
		for _, p := range byPos[pos] {
			names = append(names, p.Name)
			values = append(values, formatValue(p.Cost))
			points = append(points, formatPoints(p.Score))
		}
		if err := cw.Write([]string{
			fmt.Sprintf("%s (%d)", pos, formation[i]),
			strings.Join(names, ", "),
			strings.Join(values, ", "),
			strings.Join(points, ", "),
		}); err != nil {
			return err
		}
	}

	if err := cw.Write([]string{rowTotal, "", formatValue(res.TotalCost), formatPoints(res.TotalScore)}); err != nil {
		return err
	}
	if err := cw.Write([]string{rowFormation, formation.String(), "", ""}); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummary writes each formation's total score, in comparison order.
func WriteSummary(w io.Writer, results []optimizer.FormationResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Formation", "Total Points"}); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write([]string{r.Formation.String(), formatPoints(r.TotalScore)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteGroups writes enumeration results numbered from 1.
func WriteGroups(w io.Writer, cat *catalog.Catalog, groups []optimizer.Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Group", ColumnNames, "Positions", "Total Value", "Total Points"}); err != nil {
		return err
	}
	for i, g := range groups {
		positions := make([]string, 0, len(g.IDs))
		for _, id := range g.IDs {
			p, _ := cat.Player(id)
			positions = append(positions, string(p.Position))
		}
		if err := cw.Write([]string{
			fmt.Sprintf("Group %d", i+1),
			strings.Join(g.IDs, ", "),
			strings.Join(positions, ", "),
			formatPoints(g.TotalCost),
			formatPoints(g.TotalScore),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
