// Package report renders command results for the terminal.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ekisa-team/toolvision/internal/backend"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Training prints where a finished training run left its weights.
func Training(w io.Writer, res *backend.TrainResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Training complete!"))
	fmt.Fprintf(w, "Best weights saved at: %s\n", res.BestWeights)
	fmt.Fprintf(w, "Last weights saved at: %s\n", res.LastWeights)
}

// Inference prints per-frame detections followed by a per-class table.
func Inference(w io.Writer, res *backend.PredictResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("=== Inference Results ==="))

	for _, frame := range res.Frames {
		fmt.Fprintf(w, "Frame/Image %d: %d detections\n", frame.Index, len(frame.Detections))
		for _, d := range frame.Detections {
			fmt.Fprintf(w, "  - %s: %.2f\n", d.ClassName, d.Confidence)
		}
	}

	if rows := classRows(res.Frames); len(rows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, ClassTable(rows))
	}

	if res.SaveDir != "" {
		fmt.Fprintf(w, "Results saved to: %s\n", res.SaveDir)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Inference complete!"))
}

// ClassRow aggregates detections of one class.
type ClassRow struct {
	Name    string
	Count   int
	MaxConf float64
	Frames  int
}

// classRows aggregates detections per class, most frequent first.
func classRows(frames []backend.Frame) []ClassRow {
	byName := make(map[string]*ClassRow)
	for _, frame := range frames {
		seen := make(map[string]bool)
		for _, d := range frame.Detections {
			row, ok := byName[d.ClassName]
			if !ok {
				row = &ClassRow{Name: d.ClassName}
				byName[d.ClassName] = row
			}
			row.Count++
			row.MaxConf = max(row.MaxConf, d.Confidence)
			if !seen[d.ClassName] {
				seen[d.ClassName] = true
				row.Frames++
			}
		}
	}

	rows := make([]ClassRow, 0, len(byName))
	for _, row := range byName {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})

	return rows
}

// ClassTable renders rows as a bordered table.
func ClassTable(rows []ClassRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Class", "Detections", "Frames", "Max conf").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		t.Row(r.Name, strconv.Itoa(r.Count), strconv.Itoa(r.Frames), fmt.Sprintf("%.2f", r.MaxConf))
	}

	return t.String()
}
