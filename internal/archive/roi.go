package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"unicode/utf16"

	"fortio.org/safecast"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// ImageJ .roi layout. All values are big-endian.
const (
	roiMagic         = "Iout"
	roiVersion       = 228
	roiHeaderSize    = 64
	roiHeader2Size   = 64
	offVersion       = 4
	offType          = 6
	offTop           = 8
	offLeft          = 10
	offBottom        = 12
	offRight         = 14
	offNCoordinates  = 16
	offSize          = 18 // coordinate count when it does not fit 16 bits
	offHeader2       = 60
	offH2NameOffset  = 16
	offH2NameLength  = 20
	maxShortCoordCnt = 0xFFFF
)

// RoiType is the ImageJ ROI type byte.
type RoiType uint8

// Supported ROI types.
const (
	RoiPolygon  RoiType = 0
	RoiRect     RoiType = 1
	RoiPolyline RoiType = 5
	RoiFreehand RoiType = 7
	RoiTraced   RoiType = 8
)

var (
	// ErrCorruptEntry marks a geometry entry that cannot be decoded.
	ErrCorruptEntry = errors.New("corrupt roi entry")

	// ErrUnsupportedRoiType marks a geometry entry of a type that has no
	// polygon outline (ovals, lines, points, composite shapes).
	ErrUnsupportedRoiType = errors.New("unsupported roi type")
)

// EncodeRoi serialises an outline as an ImageJ traced ROI carrying name.
func EncodeRoi(name string, poly region.Polygon) ([]byte, error) {
	n := len(poly)
	if n == 0 {
		return nil, fmt.Errorf("failed to encode %s: empty polygon", name)
	}
	b := poly.Bounds()
	nameChars := utf16.Encode([]rune(name))

	hdr2 := roiHeaderSize + 4*n
	buf := make([]byte, hdr2+roiHeader2Size+2*len(nameChars))

	copy(buf, roiMagic)
	binary.BigEndian.PutUint16(buf[offVersion:], roiVersion)
	buf[offType] = byte(RoiTraced)

	bounds := [4]struct{ off, v int }{
		{offTop, b.Min.Y}, {offLeft, b.Min.X}, {offBottom, b.Max.Y}, {offRight, b.Max.X},
	}
	for _, f := range bounds {
		s, err := safecast.Conv[int16](f.v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s bounds: %w", name, err)
		}
		binary.BigEndian.PutUint16(buf[f.off:], uint16(s))
	}

	if n <= maxShortCoordCnt {
		binary.BigEndian.PutUint16(buf[offNCoordinates:], uint16(n))
	} else {
		cnt, err := safecast.Conv[uint32](n)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", name, err)
		}
		binary.BigEndian.PutUint32(buf[offSize:], cnt)
	}

	xs := buf[roiHeaderSize:]
	ys := buf[roiHeaderSize+2*n:]
	for i, p := range poly {
		dx, err := safecast.Conv[int16](p.X - b.Min.X)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s vertex %d: %w", name, i, err)
		}
		dy, err := safecast.Conv[int16](p.Y - b.Min.Y)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s vertex %d: %w", name, i, err)
		}
		binary.BigEndian.PutUint16(xs[2*i:], uint16(dx))
		binary.BigEndian.PutUint16(ys[2*i:], uint16(dy))
	}

	h2off, err := safecast.Conv[uint32](hdr2)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}
	binary.BigEndian.PutUint32(buf[offHeader2:], h2off)
	h2 := buf[hdr2:]
	binary.BigEndian.PutUint32(h2[offH2NameOffset:], h2off+roiHeader2Size)
	binary.BigEndian.PutUint32(h2[offH2NameLength:], uint32(len(nameChars)))
	for i, c := range nameChars {
		binary.BigEndian.PutUint16(h2[roiHeader2Size+2*i:], c)
	}
	return buf, nil
}

// DecodeRoi parses an ImageJ .roi payload. The name is empty when the
// payload carries none.
//
// Polygon, traced, freehand and polyline ROIs keep their integer vertices;
// sub-pixel coordinates are ignored. Rectangles become four-vertex outlines.
// Other types fail with ErrUnsupportedRoiType; malformed payloads fail with
// ErrCorruptEntry.
func DecodeRoi(data []byte) (string, region.Polygon, error) {
	if len(data) < roiHeaderSize || string(data[:4]) != roiMagic {
		return "", nil, fmt.Errorf("%w: missing Iout header", ErrCorruptEntry)
	}
	be := binary.BigEndian
	typ := RoiType(data[offType])
	top := int(int16(be.Uint16(data[offTop:])))
	left := int(int16(be.Uint16(data[offLeft:])))
	bottom := int(int16(be.Uint16(data[offBottom:])))
	right := int(int16(be.Uint16(data[offRight:])))

	var poly region.Polygon
	switch typ {
	case RoiRect:
		poly = region.Polygon{{X: left, Y: top}, {X: left, Y: bottom}, {X: right, Y: bottom}, {X: right, Y: top}}
	case RoiPolygon, RoiTraced, RoiFreehand, RoiPolyline:
		n := int(be.Uint16(data[offNCoordinates:]))
		if n == 0 {
			n = int(be.Uint32(data[offSize:]))
		}
		if n == 0 || roiHeaderSize+4*n > len(data) {
			return "", nil, fmt.Errorf("%w: %d coordinates in %d bytes", ErrCorruptEntry, n, len(data))
		}
		poly = make(region.Polygon, n)
		xs := data[roiHeaderSize:]
		ys := data[roiHeaderSize+2*n:]
		for i := range n {
			poly[i] = image.Point{
				X: left + int(int16(be.Uint16(xs[2*i:]))),
				Y: top + int(int16(be.Uint16(ys[2*i:]))),
			}
		}
	default:
		return "", nil, fmt.Errorf("%w: type %d", ErrUnsupportedRoiType, typ)
	}

	return decodeName(data), poly, nil
}

// decodeName reads the UTF-16 name from header2, or "" when absent.
func decodeName(data []byte) string {
	be := binary.BigEndian
	h2 := int(be.Uint32(data[offHeader2:]))
	if h2 < roiHeaderSize || h2+roiHeader2Size > len(data) {
		return ""
	}
	off := int(be.Uint32(data[h2+offH2NameOffset:]))
	n := int(be.Uint32(data[h2+offH2NameLength:]))
	if off <= 0 || n <= 0 || off+2*n > len(data) {
		return ""
	}
	chars := make([]uint16, n)
	for i := range chars {
		chars[i] = be.Uint16(data[off+2*i:])
	}
	return string(utf16.Decode(chars))
}
