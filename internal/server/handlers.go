package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
	"github.com/ironsheep/roi-tools-mcp/internal/selection"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "roi_detect", "roi_select").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Store reads and edits run inside Session.View so they never overlap a
// detection or archive load.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Label images and archives
	case "roi_label_image":
		return s.handleLabelImage(args)
	case "roi_detect":
		return s.handleDetect(ctx, args)
	case "roi_load":
		return s.handleLoad(ctx, args)
	case "roi_save":
		return s.handleSave(args)

	// Queries
	case "roi_list":
		return s.handleList(args)
	case "roi_get":
		return s.handleGet(args)
	case "roi_counts":
		return s.handleCounts()

	// Editing
	case "roi_select":
		return s.handleSelect(args)
	case "roi_toggle":
		return s.handleNamed(args, (*region.Store).Toggle)
	case "roi_unselect_all":
		return s.edit(func(st *region.Store) int { return st.UnselectAll() })
	case "roi_delete":
		return s.handleNamed(args, (*region.Store).Delete)
	case "roi_delete_selected":
		return s.handleDeleteSelected(args)
	case "roi_tagged_delete":
		return s.handleTaggedDelete(args)

	// Geometric selection
	case "roi_select_within":
		return s.handleSelectWithin(args)
	case "roi_select_hull":
		return s.handleSelectHull()
	case "roi_select_outline":
		return s.handleSelectOutline(args)
	case "roi_select_where":
		return s.handleSelectWhere(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments, treating absent arguments as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("failed to parse arguments: %w", err)
	}
	return nil
}

// changedResult reports how many regions an edit changed.
type changedResult struct {
	Changed int `json:"changed"`
}

// selectedResult reports the regions a geometric selection picked.
type selectedResult struct {
	Selected []string `json:"selected"`
	Count    int      `json:"count"`
}

func newSelectedResult(names []string) *selectedResult {
	if names == nil {
		names = []string{}
	}
	return &selectedResult{Selected: names, Count: len(names)}
}

func (s *Server) edit(fn func(*region.Store) int) (interface{}, error) {
	var n int
	_ = s.sess.View(func(st *region.Store) error {
		n = fn(st)
		return nil
	})
	return &changedResult{Changed: n}, nil
}

// === Label Image and Archive Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

func (s *Server) handleLabelImage(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return s.sess.LabelImageInfo(a.Path)
}

type detectArgs struct {
	pathArgs
	Reload bool `json:"reload,omitempty"`
}

func (s *Server) handleDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	open := s.sess.OpenLabelImage
	if a.Reload {
		open = s.sess.ReloadLabelImage
	}
	r, err := open(a.Path)
	if err != nil {
		return nil, err
	}
	return s.sess.Detect(ctx, r)
}

type loadArgs struct {
	Path       string `json:"path"`
	LabelImage string `json:"label_image,omitempty"`
}

func (s *Server) handleLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if a.LabelImage == "" {
		return s.sess.Load(ctx, a.Path, nil)
	}
	r, err := s.sess.OpenLabelImage(a.LabelImage)
	if err != nil {
		return nil, err
	}
	return s.sess.Load(ctx, a.Path, r)
}

type saveArgs struct {
	Path           string `json:"path"`
	ExcludeDeleted bool   `json:"exclude_deleted"`
}

func (s *Server) handleSave(args json.RawMessage) (interface{}, error) {
	var a saveArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}
	n, err := s.sess.Save(a.Path, a.ExcludeDeleted)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": a.Path, "saved": n}, nil
}

// === Query Handlers ===

type listArgs struct {
	State string `json:"state"`
}

type listResult struct {
	Regions []region.Region `json:"regions"`
	Count   int             `json:"count"`
}

func (s *Server) handleList(args json.RawMessage) (interface{}, error) {
	var a listArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var regions []region.Region
	err := s.sess.View(func(st *region.Store) error {
		switch a.State {
		case "", "all":
			regions = st.All()
		case "present":
			regions = st.Active()
		case "active":
			regions = st.ByState(region.Active)
		case "selected":
			regions = st.ByState(region.Selected)
		case "deleted":
			regions = st.ByState(region.Deleted)
		default:
			return fmt.Errorf("unknown state filter: %s", a.State)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if regions == nil {
		regions = []region.Region{}
	}
	return &listResult{Regions: regions, Count: len(regions)}, nil
}

type nameArgs struct {
	Name string `json:"name"`
}

// regionDetail is a region with its outline.
type regionDetail struct {
	region.Region
	Vertices []image.Point `json:"vertices"`
	Area     float64       `json:"area"`
}

func (s *Server) handleGet(args json.RawMessage) (interface{}, error) {
	var a nameArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var (
		r  region.Region
		ok bool
	)
	_ = s.sess.View(func(st *region.Store) error {
		r, ok = st.Get(a.Name)
		return nil
	})
	if !ok {
		return nil, fmt.Errorf("unknown region: %q", a.Name)
	}
	return &regionDetail{Region: r, Vertices: r.Polygon.Clone(), Area: r.Polygon.Area()}, nil
}

func (s *Server) handleCounts() (interface{}, error) {
	counts := make(map[string]int, 3)
	var rangeStop, present int
	_ = s.sess.View(func(st *region.Store) error {
		for state, n := range st.Counts() {
			counts[state.String()] = n
		}
		rangeStop = st.RangeStop()
		present = st.Len()
		return nil
	})
	return map[string]interface{}{"counts": counts, "present": present, "range_stop": rangeStop}, nil
}

// === Editing Handlers ===

type selectArgs struct {
	Names    []string `json:"names"`
	Reason   string   `json:"reason"`
	Additive bool     `json:"additive"`
}

func (s *Server) handleSelect(args json.RawMessage) (interface{}, error) {
	var a selectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Reason == "" {
		a.Reason = region.ReasonManual
	}
	return s.edit(func(st *region.Store) int {
		return st.Select(a.Names, a.Reason, a.Additive)
	})
}

type namesArgs struct {
	Names []string `json:"names"`
}

func (s *Server) handleNamed(args json.RawMessage, op func(*region.Store, ...string) int) (interface{}, error) {
	var a namesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.edit(func(st *region.Store) int { return op(st, a.Names...) })
}

type deleteSelectedArgs struct {
	Tag string `json:"tag"`
}

func (s *Server) handleDeleteSelected(args json.RawMessage) (interface{}, error) {
	var a deleteSelectedArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return s.edit(func(st *region.Store) int { return st.DeleteSelected(a.Tag) })
}

type taggedDeleteArgs struct {
	Key string `json:"key"`
}

func (s *Server) handleTaggedDelete(args json.RawMessage) (interface{}, error) {
	var a taggedDeleteArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	n, err := s.sess.TaggedDelete(a.Key)
	if err != nil {
		return nil, err
	}
	return &changedResult{Changed: n}, nil
}

// === Geometric Selection Handlers ===

type selectWithinArgs struct {
	X1       int  `json:"x1"`
	Y1       int  `json:"y1"`
	X2       int  `json:"x2"`
	Y2       int  `json:"y2"`
	Additive bool `json:"additive"`
}

func (s *Server) handleSelectWithin(args json.RawMessage) (interface{}, error) {
	var a selectWithinArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	rect := image.Rect(a.X1, a.Y1, a.X2, a.Y2)
	return s.edit(func(st *region.Store) int { return st.SelectWithin(rect, a.Additive) })
}

func (s *Server) handleSelectHull() (interface{}, error) {
	var names []string
	_ = s.sess.View(func(st *region.Store) error {
		names = selection.SelectHull(st)
		return nil
	})
	return newSelectedResult(names), nil
}

type selectOutlineArgs struct {
	Step    int    `json:"step"`
	Variant string `json:"variant"`
}

func (s *Server) handleSelectOutline(args json.RawMessage) (interface{}, error) {
	var a selectOutlineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Step == 0 {
		a.Step = s.sess.Config().OutlineStep
	}

	var sel func(*region.Store, int) ([]string, error)
	switch a.Variant {
	case "", "centroid":
		sel = selection.SelectOutline
	case "corners":
		sel = selection.SelectOutlineCorners
	default:
		return nil, fmt.Errorf("unknown outline variant: %s", a.Variant)
	}

	var names []string
	err := s.sess.View(func(st *region.Store) error {
		var err error
		names, err = sel(st, a.Step)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newSelectedResult(names), nil
}

type selectWhereArgs struct {
	Expression string `json:"expression"`
	Additive   bool   `json:"additive"`
}

func (s *Server) handleSelectWhere(args json.RawMessage) (interface{}, error) {
	var a selectWhereArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	var names []string
	err := s.sess.View(func(st *region.Store) error {
		var err error
		names, err = selection.SelectWhere(st, a.Expression, a.Additive)
		return err
	})
	if err != nil {
		return nil, err
	}
	return newSelectedResult(names), nil
}
