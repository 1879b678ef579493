// Package detection discovers the labelled regions of a label raster and
// traces their outlines.
//
// A label raster carries a unique positive value per connected region and 0
// for background. Detection turns it into one closed polygon per label.
//
// # Algorithm Overview
//
//  1. Partition: split the flat pixel index space into contiguous chunks, one
//     per worker. The worker count grows with the pixel count and is capped
//     by the available processors.
//  2. Sample: every worker visits every Stride-th pixel of its chunk.
//  3. Claim: a worker that samples a label nobody has claimed yet wins the
//     label through an atomic compare-and-set. Claims make the discovery
//     count exact even when a region spans several chunks.
//  4. Trace: the winner traces the outer boundary of the region with the
//     Wand tracer.
//  5. Join: per-worker results are merged and sorted by label.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with Y pointing down. Outline vertices lie on
// pixel corners, so a region covering pixels [x0, x1) x [y0, y1) has the
// bounding box (x0, y0)-(x1, y1).
//
// # Limitations
//
//   - Regions that never fall on a sampled pixel are not found. With the
//     default stride of 7 any region at least 7 pixels wide in some row is
//     sampled.
//   - Holes are filled: only the outer boundary of a region is traced.
//   - A label split into disconnected parts yields the outline of the part
//     that was sampled first.
package detection
