package selection

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// ReasonFilter is the selection reason of SelectWhere.
const ReasonFilter = "filter"

// Env is the environment a SelectWhere expression is evaluated against, once
// per non-deleted region.
type Env struct {
	Index    int
	Name     string
	State    string // "active" or "selected"
	Tags     []string
	X        float64 // centroid
	Y        float64
	Width    int
	Height   int
	Area     float64
	Vertices int
}

func envFor(r region.Region) Env {
	x, y := r.Polygon.Centroid()
	return Env{
		Index:    r.Index,
		Name:     r.Name,
		State:    strings.ToLower(strings.TrimPrefix(r.State.String(), "ROI_STATE_")),
		Tags:     r.Tags,
		X:        x,
		Y:        y,
		Width:    r.Bounds.Dx(),
		Height:   r.Bounds.Dy(),
		Area:     r.Polygon.Area(),
		Vertices: len(r.Polygon),
	}
}

// SelectWhere selects every non-deleted region for which expression is true
// and returns their names in ascending index order.
//
// Example expressions:
//
//	Area < 50
//	Width > 2 * Height && !("fold" in Tags)
//	X < 100 || Name matches "^L00"
//
// Unless additive is set the current selection is cleared first.
func SelectWhere(store *region.Store, expression string, additive bool) ([]string, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := expr.Compile(expression, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}

	var (
		indices []int
		names   []string
	)
	for _, r := range store.Active() {
		out, err := expr.Run(program, envFor(r))
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate expression for %s: %w", r.Name, err)
		}
		if match, _ := out.(bool); match {
			indices = append(indices, r.Index)
			names = append(names, r.Name)
		}
	}
	store.SelectIndices(indices, ReasonFilter, additive)
	return names, nil
}
