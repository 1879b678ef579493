// Package selection implements geometric queries that select regions of a
// region.Store.
//
// Every query reads a snapshot of the non-deleted regions in ascending index
// order and then selects its result additively in a single store call, so a
// query never removes an existing selection.
//
// # Queries
//
//   - SelectHull: regions whose centroid is a vertex of the convex hull of
//     all centroids.
//   - SelectOutline: per angular sector around the mean centroid, the region
//     whose centroid lies farthest out.
//   - SelectOutlineCorners: as SelectOutline, but each region is represented
//     by the bounding box corner farthest from the mean box centre.
//   - SelectWhere: regions matching a boolean expression.
//
// Rectangle containment lives on the store itself as Store.SelectWithin.
package selection
