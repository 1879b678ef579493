// Package server implements the MCP (Model Context Protocol) server for
// region-of-interest editing.
//
// This package provides a JSON-RPC 2.0 server that exposes one editing
// session over the MCP protocol: detecting regions in a label image,
// loading and saving region archives, and selecting or deleting regions.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Label images and archives:
//   - roi_label_image: Describe a label image
//   - roi_detect: Detect regions, replacing the session
//   - roi_load: Load a zip archive of ImageJ .roi entries
//   - roi_save: Save the session to a zip archive
//
// Queries:
//   - roi_list, roi_get, roi_counts
//
// Editing:
//   - roi_select, roi_toggle, roi_unselect_all
//   - roi_delete, roi_delete_selected, roi_tagged_delete
//
// Geometric selection:
//   - roi_select_within: Regions inside a rectangle
//   - roi_select_hull: Convex hull of the section
//   - roi_select_outline: Outermost region per angular sector
//   - roi_select_where: Expression filter
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Unknown region names are not errors; they are logged and skipped, and the
// result's change count shows what was applied.
//
// # Usage
//
//	sess, _ := session.New(cfg)
//	srv := server.New(sess, server.WithLogger(logger))
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
