package drill

import (
	"time"

	"diarygraph/backend/internal/diary"
	"diarygraph/backend/internal/layout"
)

// Step is one cluster the user drilled into
type Step struct {
	Mode  layout.Dimension `json:"mode"`
	Value string           `json:"value"`
	Label string           `json:"label"`
}

// Navigator keeps the drill stack and translates each step into a filter
// mutation that Back undoes exactly.
type Navigator struct {
	stack []Step
	// root is the date range in force before the first step
	root diary.DateRange
}

// NewNavigator creates an empty drill stack
func NewNavigator() *Navigator {
	return &Navigator{}
}

// Enter pushes step and narrows filters to it
func (n *Navigator) Enter(step Step, filters *diary.FilterState) {
	if len(n.stack) == 0 {
		n.root = filters.DateRange
	}
	n.stack = append(n.stack, step)
	apply(step, filters)
}

// Back pops the top step and reverts its filter mutation. ok is false at the root.
func (n *Navigator) Back(filters *diary.FilterState) (step Step, ok bool) {
	if len(n.stack) == 0 {
		return Step{}, false
	}
	step = n.stack[len(n.stack)-1]
	n.stack = n.stack[:len(n.stack)-1]

	switch step.Mode {
	case layout.DimDate, layout.DimDay:
		filters.DateRange = n.restoredRange()
	default:
		if list := listFor(step.Mode, filters); list != nil {
			*list = removeLast(*list, step.Value)
		}
	}
	return step, true
}

// restoredRange is the date constraint left by the remaining stack: the most
// recent date or day step, else the range from before drilling started.
func (n *Navigator) restoredRange() diary.DateRange {
	for i := len(n.stack) - 1; i >= 0; i-- {
		if r, ok := stepRange(n.stack[i]); ok {
			return r
		}
	}
	return n.root
}

// Reset empties the stack. Filters are left to the caller.
func (n *Navigator) Reset() {
	n.stack = nil
	n.root = diary.DateRange{}
}

// Path returns a copy of the stack, oldest step first
func (n *Navigator) Path() []Step {
	out := make([]Step, len(n.stack))
	copy(out, n.stack)
	return out
}

// Modes returns the dimension of every step, oldest first
func (n *Navigator) Modes() []layout.Dimension {
	out := make([]layout.Dimension, len(n.stack))
	for i, s := range n.stack {
		out[i] = s.Mode
	}
	return out
}

// Depth returns the number of steps
func (n *Navigator) Depth() int {
	return len(n.stack)
}

// AtRoot reports whether nothing has been drilled into
func (n *Navigator) AtRoot() bool {
	return len(n.stack) == 0
}

// FilterFor returns base narrowed to step, without touching the stack
func FilterFor(step Step, base diary.FilterState) diary.FilterState {
	out := base.Clone()
	apply(step, &out)
	return out
}

func apply(step Step, filters *diary.FilterState) {
	if r, ok := stepRange(step); ok {
		filters.DateRange = r
		return
	}
	if list := listFor(step.Mode, filters); list != nil {
		*list = append(*list, step.Value)
	}
}

// stepRange returns the date range a date or day step stands for
func stepRange(step Step) (diary.DateRange, bool) {
	switch step.Mode {
	case layout.DimDate:
		return MonthRange(step.Value)
	case layout.DimDay:
		if _, err := time.Parse(dayLayout, step.Value); err != nil {
			return diary.DateRange{}, false
		}
		return diary.DateRange{Start: step.Value, End: step.Value}, true
	}
	return diary.DateRange{}, false
}

func listFor(mode layout.Dimension, filters *diary.FilterState) *[]string {
	switch mode {
	case layout.DimTag:
		return &filters.Tags
	case layout.DimEntity:
		return &filters.Entities
	case layout.DimEntityType:
		return &filters.EntityTypes
	case layout.DimMood:
		return &filters.Moods
	case layout.DimCountry:
		return &filters.Countries
	case layout.DimCity:
		return &filters.Cities
	}
	return nil
}

// removeLast drops the last occurrence of v, returning nil for an empty result
func removeLast(list []string, v string) []string {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == v {
			out := append(list[:i:i], list[i+1:]...)
			if len(out) == 0 {
				return nil
			}
			return out
		}
	}
	return list
}

const (
	monthLayout = "2006-01"
	dayLayout   = "2006-01-02"
)

// MonthRange expands a YYYY-MM key into the first and last day of that month
func MonthRange(month string) (diary.DateRange, bool) {
	start, err := time.Parse(monthLayout, month)
	if err != nil {
		return diary.DateRange{}, false
	}
	end := start.AddDate(0, 1, -1)
	return diary.DateRange{Start: start.Format(dayLayout), End: end.Format(dayLayout)}, true
}
