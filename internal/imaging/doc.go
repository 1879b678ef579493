// Package imaging loads, caches and writes label rasters.
//
// A label raster is an integer-valued image in which every connected region
// carries its own positive label and 0 is background. Rasters are decoded
// from PNG, GIF, JPEG or TIFF files and converted to a flat row-major slice of
// uint32 labels so that detection workers can share them read-only.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - The flat pixel index of (x, y) is y*Width + x
//
// # Label Encodings
//
// The label of a pixel depends on the decoded image type:
//   - 16-bit grayscale: the gray value (the usual Fiji label image export)
//   - 8-bit grayscale: the gray value
//   - Paletted: the palette index
//   - Everything else: the 8-bit RGB channels packed as R<<16 | G<<8 | B
//
// # Thread Safety
//
// The RasterCache type is safe for concurrent use. A Raster is never mutated
// by this package after it is returned, so it may be read from many
// goroutines at once.
package imaging
