package selection

import (
	"errors"
	"slices"
	"testing"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// square returns the outline of a size x size block at (x, y).
func square(x, y, size int) region.Polygon {
	return region.Polygon{
		{X: x + size, Y: y + size},
		{X: x + size, Y: y},
		{X: x, Y: y},
		{X: x, Y: y + size},
	}
}

// newTestStore inserts one active region per polygon, named L1..Ln.
func newTestStore(t *testing.T, polys ...region.Polygon) *region.Store {
	t.Helper()
	s := region.New(64)
	if err := s.Reset(len(polys)); err != nil {
		t.Fatal(err)
	}
	for i, p := range polys {
		if err := s.BulkInsert(s.NameFor(i+1), i+1, p, region.Active, nil); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func selectedNames(s *region.Store) []string {
	var out []string
	for _, r := range s.ByState(region.Selected) {
		out = append(out, r.Name)
	}
	return out
}

func TestSelectHull(t *testing.T) {
	// Centroids (10,10), (20,10), (20,20), (10,20) and the centre (15,15).
	s := newTestStore(t,
		square(9, 9, 2), square(19, 9, 2), square(19, 19, 2), square(9, 19, 2), square(14, 14, 2))

	got := SelectHull(s)
	want := []string{"L1", "L2", "L3", "L4"}
	if !slices.Equal(got, want) {
		t.Errorf("SelectHull() = %v, want %v", got, want)
	}
	if sel := selectedNames(s); !slices.Equal(sel, want) {
		t.Errorf("selected = %v, want %v", sel, want)
	}
}

func TestSelectHull_CollinearPointDropped(t *testing.T) {
	// L2 sits on the edge between L1 and L3.
	s := newTestStore(t,
		square(9, 9, 2), square(14, 9, 2), square(19, 9, 2), square(14, 19, 2))
	got := SelectHull(s)
	if want := []string{"L1", "L3", "L4"}; !slices.Equal(got, want) {
		t.Errorf("SelectHull() = %v, want %v", got, want)
	}
}

func TestSelectHull_Additive(t *testing.T) {
	s := newTestStore(t,
		square(9, 9, 2), square(19, 9, 2), square(19, 19, 2), square(9, 19, 2), square(14, 14, 2))
	s.Select([]string{"L5"}, region.ReasonManual, false)
	SelectHull(s)
	if st, _ := s.State("L5"); st != region.Selected {
		t.Errorf("L5 state = %v, hull selection should be additive", st)
	}
}

func TestSelectHull_SkipsDeleted(t *testing.T) {
	s := newTestStore(t,
		square(9, 9, 2), square(19, 9, 2), square(19, 19, 2), square(9, 19, 2), square(14, 14, 2), square(40, 40, 2))
	s.Delete("L6")
	got := SelectHull(s)
	if want := []string{"L1", "L2", "L3", "L4"}; !slices.Equal(got, want) {
		t.Errorf("SelectHull() = %v, want %v", got, want)
	}
}

func TestSelectHull_FewRegions(t *testing.T) {
	if got := SelectHull(region.New(4)); got != nil {
		t.Errorf("SelectHull(empty) = %v, want nil", got)
	}
	s := newTestStore(t, square(0, 0, 2))
	if got := SelectHull(s); got != nil {
		t.Errorf("SelectHull(single) = %v, want nil", got)
	}
	if st, _ := s.State("L1"); st != region.Active {
		t.Errorf("L1 state = %v, a lone region should stay active", st)
	}
	s = newTestStore(t, square(0, 0, 2), square(10, 0, 2))
	if got := SelectHull(s); !slices.Equal(got, []string{"L1", "L2"}) {
		t.Errorf("SelectHull(pair) = %v, want [L1 L2]", got)
	}
}

func TestSelectOutline_FarthestPerSector(t *testing.T) {
	// Centroids (105,100), (110,100), (85,100); their mean is (100,100).
	// L1 and L2 share the 0 degree sector at distances 5 and 10.
	s := newTestStore(t, square(104, 99, 2), square(109, 99, 2), square(84, 99, 2))

	got, err := SelectOutline(s, 10)
	if err != nil {
		t.Fatalf("SelectOutline failed: %v", err)
	}
	if want := []string{"L2", "L3"}; !slices.Equal(got, want) {
		t.Errorf("SelectOutline() = %v, want %v", got, want)
	}
	r, _ := s.Get("L2")
	if r.Reason != region.TagEdgeSection {
		t.Errorf("reason = %q, want %q", r.Reason, region.TagEdgeSection)
	}
	if st, _ := s.State("L1"); st != region.Active {
		t.Errorf("L1 state = %v, want active", st)
	}
}

func TestSelectOutline_TieGoesToLowerIndex(t *testing.T) {
	s := newTestStore(t, square(109, 99, 2), square(109, 99, 2), square(79, 99, 2))
	got, err := SelectOutline(s, 10)
	if err != nil {
		t.Fatalf("SelectOutline failed: %v", err)
	}
	if want := []string{"L1", "L3"}; !slices.Equal(got, want) {
		t.Errorf("SelectOutline() = %v, want %v", got, want)
	}
}

func TestSelectOutline_InvalidStep(t *testing.T) {
	s := newTestStore(t, square(0, 0, 2))
	for _, step := range []int{0, -10, 361} {
		if _, err := SelectOutline(s, step); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("SelectOutline(step=%d) err = %v, want ErrInvalidStep", step, err)
		}
		if _, err := SelectOutlineCorners(s, step); !errors.Is(err, ErrInvalidStep) {
			t.Errorf("SelectOutlineCorners(step=%d) err = %v, want ErrInvalidStep", step, err)
		}
	}
}

func TestSelectOutline_Empty(t *testing.T) {
	got, err := SelectOutline(region.New(4), 10)
	if err != nil || got != nil {
		t.Errorf("SelectOutline(empty) = %v, %v", got, err)
	}
}

func TestSelectOutlineCorners(t *testing.T) {
	// Box centres (5,5), (25,5), (45,5) average to (25,5). The outer boxes
	// reach farthest in their own sectors; the middle box is alone in its
	// sector too.
	s := newTestStore(t, square(0, 0, 10), square(20, 0, 10), square(40, 0, 10))
	got, err := SelectOutlineCorners(s, 10)
	if err != nil {
		t.Fatalf("SelectOutlineCorners failed: %v", err)
	}
	if want := []string{"L1", "L2", "L3"}; !slices.Equal(got, want) {
		t.Errorf("SelectOutlineCorners() = %v, want %v", got, want)
	}
}

func rect(x0, y0, x1, y1 int) region.Polygon {
	return region.Polygon{{X: x1, Y: y1}, {X: x1, Y: y0}, {X: x0, Y: y0}, {X: x0, Y: y1}}
}

func TestSelectOutlineCorners_FarCornerWins(t *testing.T) {
	// L2 is a small box far out; L3 is a tall box closer in whose corner
	// reaches farther. Both share a sector in either variant.
	polys := []region.Polygon{
		rect(0, 20, 2, 22),
		rect(40, 20, 42, 22),
		rect(30, 0, 36, 42),
	}

	got, err := SelectOutline(newTestStore(t, polys...), 90)
	if err != nil {
		t.Fatalf("SelectOutline failed: %v", err)
	}
	if want := []string{"L1", "L2"}; !slices.Equal(got, want) {
		t.Errorf("SelectOutline() = %v, want %v", got, want)
	}

	got, err = SelectOutlineCorners(newTestStore(t, polys...), 90)
	if err != nil {
		t.Fatalf("SelectOutlineCorners failed: %v", err)
	}
	if want := []string{"L1", "L3"}; !slices.Equal(got, want) {
		t.Errorf("SelectOutlineCorners() = %v, want %v", got, want)
	}
}

func TestSelectWhere(t *testing.T) {
	s := newTestStore(t, square(0, 0, 2), square(10, 0, 4), square(20, 0, 6))

	got, err := SelectWhere(s, "Area > 10", false)
	if err != nil {
		t.Fatalf("SelectWhere failed: %v", err)
	}
	if want := []string{"L2", "L3"}; !slices.Equal(got, want) {
		t.Errorf("SelectWhere() = %v, want %v", got, want)
	}
	r, _ := s.Get("L3")
	if r.Reason != ReasonFilter {
		t.Errorf("reason = %q, want %q", r.Reason, ReasonFilter)
	}

	// Non-additive selection replaces the previous one.
	got, err = SelectWhere(s, `Name == "L1" && State == "active"`, false)
	if err != nil {
		t.Fatalf("SelectWhere failed: %v", err)
	}
	if !slices.Equal(got, []string{"L1"}) || !slices.Equal(selectedNames(s), []string{"L1"}) {
		t.Errorf("got %v, selected %v; want [L1]", got, selectedNames(s))
	}
}

func TestSelectWhere_Tags(t *testing.T) {
	s := region.New(8)
	if err := s.Reset(2); err != nil {
		t.Fatal(err)
	}
	_ = s.BulkInsert("L1", 1, square(0, 0, 2), region.Active, []string{"vessel"})
	_ = s.BulkInsert("L2", 2, square(5, 0, 2), region.Active, nil)

	got, err := SelectWhere(s, `"vessel" in Tags`, true)
	if err != nil {
		t.Fatalf("SelectWhere failed: %v", err)
	}
	if !slices.Equal(got, []string{"L1"}) {
		t.Errorf("SelectWhere() = %v, want [L1]", got)
	}
}

func TestSelectWhere_Errors(t *testing.T) {
	s := newTestStore(t, square(0, 0, 2))
	for _, e := range []string{"", "Area >", "Area", "Bogus > 1"} {
		if _, err := SelectWhere(s, e, false); err == nil {
			t.Errorf("SelectWhere(%q) should fail", e)
		}
	}
}
