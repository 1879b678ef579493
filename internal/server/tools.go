package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func objectSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var (
	namesProperty = map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Region names, e.g. [\"L0012\", \"L0013\"]",
	}
	additiveProperty = map[string]interface{}{
		"type":        "boolean",
		"description": "Keep the current selection and add to it. Default false",
		"default":     false,
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Label images and archives
		{
			Name:        "roi_label_image",
			Description: "Describe a label image: dimensions, format and the highest region label it contains.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the label image (png, gif, jpeg or tiff)",
				},
			}, "path"),
		},
		{
			Name:        "roi_detect",
			Description: "Detect every labelled region of a label image, replacing the session's regions. Small regions and regions touching the image border start out deleted, tagged \"small\" or \"edge.image\".",
			InputSchema: objectSchema(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the label image",
				},
				"reload": map[string]interface{}{
					"type":        "boolean",
					"description": "Decode the file again even if it was read before, e.g. after it changed on disk. Default false",
					"default":     false,
				},
			}, "path"),
		},
		{
			Name:        "roi_load",
			Description: "Load a region archive (zip of ImageJ .roi entries), replacing the session's regions. Archives without a tags.json manifest or canonical names need a label image to infer labels.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the zip archive",
				},
				"label_image": map[string]interface{}{
					"type":        "string",
					"description": "Optional label image path. Defaults to the image of the last detection",
				},
			}, "path"),
		},
		{
			Name:        "roi_save",
			Description: "Save the session's regions to a zip archive with a tags.json manifest.",
			InputSchema: objectSchema(map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the archive to write",
				},
				"exclude_deleted": map[string]interface{}{
					"type":        "boolean",
					"description": "Leave deleted regions out of the archive. Default false",
					"default":     false,
				},
			}, "path"),
		},

		// Queries
		{
			Name:        "roi_list",
			Description: "List regions in ascending index order, optionally filtered by state.",
			InputSchema: objectSchema(map[string]interface{}{
				"state": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"all", "present", "active", "selected", "deleted"},
					"description": "Which regions to list. \"present\" means not deleted. Default all",
					"default":     "all",
				},
			}),
		},
		{
			Name:        "roi_get",
			Description: "Get one region including its polygon vertices.",
			InputSchema: objectSchema(map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Region name",
				},
			}, "name"),
		},
		{
			Name:        "roi_counts",
			Description: "Count regions per state.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},

		// Editing
		{
			Name:        "roi_select",
			Description: "Select regions by name. Deleted regions are never selected.",
			InputSchema: objectSchema(map[string]interface{}{
				"names": namesProperty,
				"reason": map[string]interface{}{
					"type":        "string",
					"description": "Selection reason, recorded as a tag if the region is later deleted. Default \"manual\"",
				},
				"additive": additiveProperty,
			}, "names"),
		},
		{
			Name:        "roi_toggle",
			Description: "Flip regions between active and selected.",
			InputSchema: objectSchema(map[string]interface{}{
				"names": namesProperty,
			}, "names"),
		},
		{
			Name:        "roi_unselect_all",
			Description: "Return every selected region to active.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "roi_delete",
			Description: "Delete regions by name. Deletion is permanent for the session.",
			InputSchema: objectSchema(map[string]interface{}{
				"names": namesProperty,
			}, "names"),
		},
		{
			Name:        "roi_delete_selected",
			Description: "Delete every selected region, optionally tagging them.",
			InputSchema: objectSchema(map[string]interface{}{
				"tag": map[string]interface{}{
					"type":        "string",
					"description": "Optional tag added to each deleted region",
				},
			}),
		},
		{
			Name:        "roi_tagged_delete",
			Description: "Delete every selected region with the tag bound to a function key (F5 freeze, F6 fold, F7 vessel, F9 section.tear, F10 section.stretch by default).",
			InputSchema: objectSchema(map[string]interface{}{
				"key": map[string]interface{}{
					"type":        "string",
					"description": "Function key name, e.g. \"F6\"",
				},
			}, "key"),
		},

		// Geometric selection
		{
			Name:        "roi_select_within",
			Description: "Select active regions whose bounding box lies entirely inside a rectangle.",
			InputSchema: objectSchema(map[string]interface{}{
				"x1":       map[string]interface{}{"type": "integer", "description": "Left edge X coordinate"},
				"y1":       map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate"},
				"x2":       map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
				"y2":       map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
				"additive": additiveProperty,
			}, "x1", "y1", "x2", "y2"),
		},
		{
			Name:        "roi_select_hull",
			Description: "Add the regions forming the convex hull of all non-deleted region centroids to the selection.",
			InputSchema: objectSchema(map[string]interface{}{}),
		},
		{
			Name:        "roi_select_outline",
			Description: "Select the outermost region in each angular sector around the section centre, tagging them edge.section.",
			InputSchema: objectSchema(map[string]interface{}{
				"step": map[string]interface{}{
					"type":        "integer",
					"description": "Sector width in degrees, 1 to 360. Defaults to the configured outline step",
				},
				"variant": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"centroid", "corners"},
					"description": "Measure distance from region centroids or from the farthest bounding-box corner. Default centroid",
					"default":     "centroid",
				},
			}),
		},
		{
			Name:        "roi_select_where",
			Description: "Select non-deleted regions matching a boolean expression over Index, Name, State, Tags, X, Y, Width, Height, Area and Vertices, e.g. \"Area > 500 && X < 100\".",
			InputSchema: objectSchema(map[string]interface{}{
				"expression": map[string]interface{}{
					"type":        "string",
					"description": "Boolean expression (expr-lang syntax)",
				},
				"additive": additiveProperty,
			}, "expression"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
