package region

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrCapacityExceeded is returned when a region index or a requested session
// size does not fit the store. It is a configuration error: the store never
// grows at runtime.
var ErrCapacityExceeded = errors.New("region store capacity exceeded")

// labelFontHeight is the nominal height of a rendered region label. Labels
// are drawn a quarter of that height below the region centroid.
const labelFontHeight = 12

// Label is the display label a renderer draws for a region.
type Label struct {
	Pos   image.Point    `json:"pos"`
	Text  string         `json:"text"`
	Color colorful.Color `json:"-"`

	// Hex is Color as "#rrggbb", for clients that draw labels themselves.
	Hex string `json:"color"`
}

// Region is a read-only snapshot of one stored region.
//
// Polygon shares storage with the store and must not be modified.
type Region struct {
	Index   int             `json:"index"`
	Name    string          `json:"name"`
	Polygon Polygon         `json:"-"`
	Bounds  image.Rectangle `json:"bounds"`
	State   State           `json:"state"`
	Tags    []string        `json:"tags"`
	Reason  string          `json:"reason,omitempty"`
	Label   Label           `json:"label"`
}

type slot struct {
	has    bool
	name   string
	poly   Polygon
	bounds image.Rectangle
	state  State
	tags   map[string]struct{}
	reason string
	label  image.Point
}

// Store is a fixed-capacity, index-addressed container for the regions of
// one editing session.
//
// Store is safe for concurrent use except for BulkInsert; see the package
// documentation.
type Store struct {
	mu          sync.Mutex
	slots       []slot
	nameToIndex map[string]int
	rangeStop   int
	nameWidth   int
	labelShiftY int
	log         *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for soft failures such as unknown names.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a store that can hold region indices 1..maxRegions.
func New(maxRegions int, opts ...Option) *Store {
	if maxRegions < 0 {
		maxRegions = 0
	}
	s := &Store{
		slots:       make([]slot, maxRegions+1),
		nameToIndex: make(map[string]int),
		log:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.slots[0] = slot{name: "EMPTY"}
	s.setRangeStop(0)
	return s
}

// Capacity returns the highest region index the store can hold.
func (s *Store) Capacity() int { return len(s.slots) - 1 }

// RangeStop returns one past the highest valid index of the current session.
func (s *Store) RangeStop() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rangeStop
}

// Reset clears the store for a session of n regions.
//
// Every index below max(current range stop, n+1) is cleared, the range stop
// becomes n+1 and the name padding width is recomputed from n. Slots that
// were never populated are left as they are.
func (s *Store) Reset(n int) error {
	if n < 0 {
		n = 0
	}
	if n > s.Capacity() {
		return fmt.Errorf("%w: session of %d regions, capacity %d", ErrCapacityExceeded, n, s.Capacity())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stop := min(max(s.rangeStop, n+1), len(s.slots))
	for idx := 1; idx < stop; idx++ {
		if !s.slots[idx].has {
			continue
		}
		if s.nameToIndex[s.slots[idx].name] == idx {
			delete(s.nameToIndex, s.slots[idx].name)
		}
		s.slots[idx] = slot{}
	}
	s.setRangeStop(n)
	return nil
}

func (s *Store) setRangeStop(n int) {
	s.rangeStop = n + 1
	s.nameWidth = len(strconv.Itoa(n))
	s.labelShiftY = labelFontHeight / 4
}

// NameFor returns the canonical name of region id for the current session.
func (s *Store) NameFor(id int) string {
	s.mu.Lock()
	w := s.nameWidth
	s.mu.Unlock()
	return CanonicalName(id, w)
}

// CanonicalName formats id as "L" followed by id zero-padded to width digits.
func CanonicalName(id, width int) string {
	return fmt.Sprintf("L%0*d", width, id)
}

// BulkInsert stores one region during population.
//
// BulkInsert takes no lock. Callers must guarantee that each index is written
// by a single goroutine and that nothing reads the store until population is
// finished. An index outside 1..Capacity() is a configuration error.
func (s *Store) BulkInsert(name string, index int, poly Polygon, state State, tags []string) error {
	if index < 1 || index >= len(s.slots) {
		return fmt.Errorf("%w: index %d for %s, capacity %d", ErrCapacityExceeded, index, name, s.Capacity())
	}

	old := &s.slots[index]
	if old.has && old.name != name && s.nameToIndex[old.name] == index {
		delete(s.nameToIndex, old.name)
	}

	tagSet := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t != "" {
			tagSet[t] = struct{}{}
		}
	}
	cx, cy := poly.Centroid()
	s.slots[index] = slot{
		has:    true,
		name:   name,
		poly:   poly,
		bounds: poly.Bounds(),
		state:  state,
		tags:   tagSet,
		label:  image.Pt(int(cx), int(cy)+s.labelShiftY),
	}
	s.nameToIndex[name] = index
	if index >= s.rangeStop {
		s.rangeStop = index + 1
	}
	return nil
}

// resolve maps a name to its index, logging names the store does not know.
// Callers hold s.mu.
func (s *Store) resolve(name string) (int, bool) {
	idx, ok := s.nameToIndex[name]
	if !ok || !s.slots[idx].has {
		s.log.Warn("unknown region", "name", name)
		return 0, false
	}
	return idx, true
}

// Select marks the named regions Selected, skipping deleted ones. A non-empty
// reason replaces the selection reason. Unless additive is set, every
// currently selected region is first returned to Active.
// It returns the number of regions selected by this call.
func (s *Store) Select(names []string, reason string, additive bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !additive {
		s.unselectAllLocked()
	}
	n := 0
	for _, name := range names {
		idx, ok := s.resolve(name)
		if !ok {
			continue
		}
		if s.selectLocked(idx, reason) {
			n++
		}
	}
	return n
}

// SelectIndices is Select addressed by index. Unpopulated indices are skipped.
func (s *Store) SelectIndices(indices []int, reason string, additive bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !additive {
		s.unselectAllLocked()
	}
	n := 0
	for _, idx := range indices {
		if idx < 1 || idx >= s.rangeStop || idx >= len(s.slots) || !s.slots[idx].has {
			s.log.Warn("unknown region index", "index", idx)
			continue
		}
		if s.selectLocked(idx, reason) {
			n++
		}
	}
	return n
}

func (s *Store) selectLocked(idx int, reason string) bool {
	sl := &s.slots[idx]
	if sl.state == Deleted {
		return false
	}
	sl.state = Selected
	if reason != "" {
		sl.reason = reason
	}
	return true
}

// Toggle flips each named region between Active and Selected. Deleted
// regions are logged and left alone.
func (s *Store) Toggle(names ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, name := range names {
		idx, ok := s.resolve(name)
		if !ok {
			continue
		}
		sl := &s.slots[idx]
		switch sl.state {
		case Deleted:
			s.log.Warn("region already deleted", "name", name)
			continue
		case Active:
			sl.state = Selected
			sl.reason = ReasonManual
		default:
			sl.state = Active
			sl.reason = ""
		}
		n++
	}
	return n
}

// UnselectAll returns every selected region to Active and clears its reason.
func (s *Store) UnselectAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unselectAllLocked()
}

func (s *Store) unselectAllLocked() int {
	n := 0
	for idx := 1; idx < s.rangeStop; idx++ {
		sl := &s.slots[idx]
		if sl.has && sl.state == Selected {
			sl.state = Active
			sl.reason = ""
			n++
		}
	}
	return n
}

// Delete marks the named regions Deleted, promoting any selection reason to
// a tag.
func (s *Store) Delete(names ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, name := range names {
		idx, ok := s.resolve(name)
		if !ok {
			continue
		}
		if s.deleteLocked(idx, "") {
			n++
		}
	}
	return n
}

// DeleteSelected deletes every selected region. Each region's selection
// reason is promoted to a tag, and a non-empty tag is added as well.
func (s *Store) DeleteSelected(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag != "" {
		s.log.Info("delete selected with tag", "tag", tag)
	}
	n := 0
	for idx := 1; idx < s.rangeStop; idx++ {
		if s.slots[idx].has && s.slots[idx].state == Selected {
			s.deleteLocked(idx, tag)
			n++
		}
	}
	return n
}

func (s *Store) deleteLocked(idx int, tag string) bool {
	sl := &s.slots[idx]
	changed := sl.state != Deleted
	sl.state = Deleted
	if sl.reason != "" {
		sl.tags[sl.reason] = struct{}{}
		sl.reason = ""
	}
	if tag != "" {
		sl.tags[tag] = struct{}{}
	}
	return changed
}

// SelectWithin selects every Active region whose bounding box lies entirely
// inside rect, with reason "manual".
func (s *Store) SelectWithin(rect image.Rectangle, additive bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !additive {
		s.unselectAllLocked()
	}
	n := 0
	for idx := 1; idx < s.rangeStop; idx++ {
		sl := &s.slots[idx]
		if !sl.has || sl.state != Active {
			continue
		}
		if sl.bounds.In(rect) {
			sl.state = Selected
			sl.reason = ReasonManual
			n++
		}
	}
	return n
}

// Get returns a snapshot of the named region.
func (s *Store) Get(name string) (Region, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.nameToIndex[name]
	if !ok || !s.slots[idx].has {
		return Region{}, false
	}
	return s.snapshot(idx), true
}

// State returns the state of the named region.
func (s *Store) State(name string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.nameToIndex[name]
	if !ok || !s.slots[idx].has {
		return Active, false
	}
	return s.slots[idx].state, true
}

// IndexOf returns the index the named region is stored at.
func (s *Store) IndexOf(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.nameToIndex[name]
	return idx, ok && s.slots[idx].has
}

// All returns every stored region in ascending index order.
func (s *Store) All() []Region {
	return s.collect(func(*slot) bool { return true })
}

// ByState returns the regions in the given state in ascending index order.
func (s *Store) ByState(state State) []Region {
	return s.collect(func(sl *slot) bool { return sl.state == state })
}

// Active returns every region that is not deleted, in ascending index order.
func (s *Store) Active() []Region {
	return s.collect(func(sl *slot) bool { return sl.state != Deleted })
}

func (s *Store) collect(keep func(*slot) bool) []Region {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Region
	for idx := 1; idx < s.rangeStop; idx++ {
		if s.slots[idx].has && keep(&s.slots[idx]) {
			out = append(out, s.snapshot(idx))
		}
	}
	return out
}

// MapActive applies fn to every non-deleted region under the store lock and
// returns the results in ascending index order. fn must not call back into
// the store.
func MapActive[T any](s *Store, fn func(Region) T) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []T
	for idx := 1; idx < s.rangeStop; idx++ {
		if s.slots[idx].has && s.slots[idx].state != Deleted {
			out = append(out, fn(s.snapshot(idx)))
		}
	}
	return out
}

// Len returns the number of regions that are not deleted.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for idx := 1; idx < s.rangeStop; idx++ {
		if s.slots[idx].has && s.slots[idx].state != Deleted {
			n++
		}
	}
	return n
}

// Counts returns the number of stored regions per state.
func (s *Store) Counts() map[State]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[State]int{Active: 0, Selected: 0, Deleted: 0}
	for idx := 1; idx < s.rangeStop; idx++ {
		if s.slots[idx].has {
			counts[s.slots[idx].state]++
		}
	}
	return counts
}

// snapshot copies slot idx into a Region. Callers hold s.mu.
func (s *Store) snapshot(idx int) Region {
	sl := &s.slots[idx]
	c := LabelColor(sl.state)
	return Region{
		Index:   idx,
		Name:    sl.name,
		Polygon: sl.poly,
		Bounds:  sl.bounds,
		State:   sl.state,
		Tags:    slices.Sorted(maps.Keys(sl.tags)),
		Reason:  sl.reason,
		Label: Label{
			Pos:   sl.label,
			Text:  sl.name,
			Color: c,
			Hex:   c.Hex(),
		},
	}
}
