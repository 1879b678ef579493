// Package region holds the in-memory store of regions of interest for one
// editing session.
//
// A region is a closed polygon traced from one label of a segmentation raster.
// The store addresses regions by dense integer index (index 0 is a reserved
// sentinel and never holds a region) and keeps a bijective mapping between
// region names and indices. Each region carries a lifecycle state, a set of
// tags recording why it reached that state, and a transient selection reason.
//
// # Lifecycle
//
// Regions are Active, Selected or Deleted. Deleted is terminal: no select,
// toggle or unselect call moves a region out of it. Only Reset clears it.
// When a region with a selection reason is deleted, the reason is promoted
// to a tag.
//
// # Thread Safety
//
// All mutators and queries take the store's mutex, and every query returns a
// snapshot taken under that lock. BulkInsert is the exception: it is used
// while the store is being populated from detection or an archive, takes no
// lock, and requires that each index is written by at most one goroutine and
// that no reader runs concurrently.
//
// # Names
//
// Canonical names are "L" followed by the zero-padded index. The padding width
// is the number of digits of the highest index of the current session, so a
// session holding 1500 regions names its first region "L0001".
package region
