package cli

import (
	"strconv"
	"strings"

	"github.com/haivivi/nearest/pkg/event"
)

// FormatPoint formats coordinates as "(x, y, ...)"
func FormatPoint(p []float64) string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// FormatInts joins integers with commas, or "-" when empty
func FormatInts(v []int) string {
	if len(v) == 0 {
		return "-"
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// FormatNeighbors pairs ids with their squared distances: "a=1 b=4"
func FormatNeighbors(ids []string, distances []float64) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id
		if i < len(distances) {
			parts[i] += "=" + strconv.FormatFloat(distances[i], 'g', -1, 64)
		}
	}
	return strings.Join(parts, " ")
}

// Results is a list of event results with a table form
type Results []event.Result

// Table implements Tabler
func (rs Results) Table() Table {
	t := Table{Header: []string{"#", "OP", "ID", "GROUPS", "NEAREST", "ERROR"}}
	for i, r := range rs {
		id := r.ID
		if id == "" {
			id = "-"
		}
		errText := r.Error
		if errText == "" {
			errText = "-"
		}
		result := FormatNeighbors(r.IDs, r.Distances)
		if r.Dump != "" {
			result = r.Dump
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i), string(r.Op), id, FormatInts(r.Groups), result, errText,
		})
	}
	return t
}
