// Package render publishes threshold scenarios as a plain text table or as a
// MediaWiki wikitable with a cutoff row below the qualifying places.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/okian/cutline/internal/domain/circuit"
	"github.com/okian/cutline/internal/domain/threshold"
)

// highlightedPlaces is how many top places get a placement background.
const highlightedPlaces = 4

// Table is a rendered scenario: standings best first with a cutoff after the
// qualifying places.
type Table struct {
	Competitor string
	Value      int64
	Cutoff     int
	Columns    []threshold.Column
	Rows       []threshold.Standing
}

// FromOutcome builds the table of an outcome's scenario.
func FromOutcome(out threshold.Outcome) (*Table, error) {
	if !out.HasScenario() {
		return nil, fmt.Errorf("%w: %s", ErrNoScenario, out.Name)
	}
	return &Table{
		Competitor: out.Name,
		Value:      out.Value,
		Cutoff:     out.EliminationRank,
		Columns:    out.Scenario.Columns,
		Rows:       out.Scenario.Sorted(),
	}, nil
}

func columnLabel(c threshold.Column) string {
	switch c.Kind {
	case circuit.Event:
		return c.Stage
	case circuit.Transfer:
		return "Transfer"
	default:
		return "Points"
	}
}

// WriteText writes an aligned plain text table.
func (t *Table) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%s fails to qualify with %d points\n", t.Competitor, t.Value); err != nil {
		return err
	}
	tw := tablewriter.NewWriter(w)
	header := []string{"Place", "Team", "Total"}
	for _, c := range t.Columns {
		header = append(header, c.Step+" "+columnLabel(c))
	}
	tw.SetHeader(header)
	tw.SetAutoFormatHeaders(false)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)

	for i, row := range t.Rows {
		if i == t.Cutoff {
			marker := make([]string, len(header))
			marker[1] = fmt.Sprintf("top %d cutoff", t.Cutoff)
			tw.Append(marker)
		}
		line := []string{strconv.Itoa(i + 1), row.Name, strconv.FormatInt(row.Total, 10)}
		for _, cell := range row.Cells {
			line = append(line, textCell(cell))
		}
		tw.Append(line)
	}
	tw.Render()
	return nil
}

func textCell(c threshold.Cell) string {
	if c.Place > 0 {
		return fmt.Sprintf("%d (#%d)", c.Points, c.Place)
	}
	return strconv.FormatInt(c.Points, 10)
}

// WriteWiki writes the scenario in MediaWiki table markup.
func (t *Table) WriteWiki(w io.Writer) error {
	var b strings.Builder
	b.WriteString("==What does the threshold scenario look like?==\n")
	fmt.Fprintf(&b, "This is the following scenario where {{Team|%s}} fail to qualify with %d points.\n", t.Competitor, t.Value)
	b.WriteString("{| class=\"wikitable\" style=\"font-size:85%; text-align: center;\"\n")
	b.WriteString("!rowspan=\"2\" style=\"min-width:40px\"| '''Place'''\n")
	b.WriteString("!rowspan=\"2\" style=\"min-width:200px\"| '''Team'''\n")
	b.WriteString("!style=\"min-width:50px\"| '''Point'''\n")
	for _, g := range groupColumns(t.Columns) {
		fmt.Fprintf(&b, "! colspan=\"%d\" style=\"min-width:50px\"|%s\n", g.span, g.title)
	}
	b.WriteString("|-\n")
	fmt.Fprintf(&b, "| '''%d'''\n", t.Value+1)
	labels := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = columnLabel(c)
	}
	fmt.Fprintf(&b, "| %s\n", strings.Join(labels, " || "))
	b.WriteString("|-\n")

	for i, row := range t.Rows {
		if i == t.Cutoff {
			b.WriteString("|-\n")
			fmt.Fprintf(&b, "| colspan=\"99\" | Top %d cutoff\n", t.Cutoff)
		}
		b.WriteString("|-\n")
		fmt.Fprintf(&b, "| %d\n", i+1)
		fmt.Fprintf(&b, "|style=\"text-align: left;\"| {{Team|%s}}\n", row.Name)
		fmt.Fprintf(&b, "| %d\n", row.Total)
		for _, cell := range row.Cells {
			fmt.Fprintf(&b, "| %s\n", wikiCell(cell))
		}
		b.WriteString("|-\n")
	}
	b.WriteString("|}\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func wikiCell(c threshold.Cell) string {
	if c.Place >= 1 && c.Place <= highlightedPlaces {
		return fmt.Sprintf("{{PlacementBg/%d}} %d", c.Place, c.Points)
	}
	return strconv.FormatInt(c.Points, 10)
}

type columnGroup struct {
	title string
	span  int
}

// groupColumns merges consecutive columns of one step under one header.
func groupColumns(cols []threshold.Column) []columnGroup {
	var out []columnGroup
	for i, c := range cols {
		if i > 0 && cols[i-1].Step == c.Step {
			out[len(out)-1].span++
			continue
		}
		title := c.Icon
		if title == "" {
			title = c.Step
		}
		out = append(out, columnGroup{title: title, span: 1})
	}
	return out
}
