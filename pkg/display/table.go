// Package display renders the DoF registry for operators.
package display

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/open-teleop/console/pkg/dof"
)

var (
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	lagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
)

// LagThreshold is the set/current difference above which a row is flagged.
const LagThreshold = 0.1

var _ dof.Display = (*Table)(nil)

// Table mirrors the registry as a set/current grid. It may be read from any
// goroutine.
type Table struct {
	mu  sync.RWMutex
	set [dof.Count]float64
	cur [dof.Count]float64
}

// NewTable returns a table with all values at zero.
func NewTable() *Table {
	return &Table{}
}

func (t *Table) OnCommandChanged(id dof.ID, value float64) {
	if !id.Valid() {
		return
	}
	t.mu.Lock()
	t.set[id] = value
	t.mu.Unlock()
}

func (t *Table) OnObservedChanged(id dof.ID, value float64) {
	if !id.Valid() {
		return
	}
	t.mu.Lock()
	t.cur[id] = value
	t.mu.Unlock()
}

// Values returns copies of the set and current columns.
func (t *Table) Values() (set, cur [dof.Count]float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.set, t.cur
}

// Render draws the table with rounded borders.
func (t *Table) Render() string {
	set, cur := t.Values()

	rows := make([][]string, 0, dof.Count)
	for i := 0; i < dof.Count; i++ {
		rows = append(rows, []string{
			strconv.Itoa(i),
			dof.ID(i).String(),
			format(set[i]),
			format(cur[i]),
		})
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "DoF", "Set", "Current").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			switch col {
			case 1:
				return nameStyle
			case 3:
				if row >= 0 && row < dof.Count && abs(set[row]-cur[row]) > LagThreshold {
					return lagStyle
				}
				return currentStyle
			default:
				return cellStyle
			}
		})
	return tbl.Render()
}

func format(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	if s == "-0.00" {
		return "0.00"
	}
	return s
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
