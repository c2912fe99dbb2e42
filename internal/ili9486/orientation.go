package ili9486

import "fmt"

// Orientation is the order in which the controller scans frame memory.
// The first half of the name is the major axis: left-to-right/right-to-left
// variants scan rows of the short side, up-to-down/down-to-up variants scan
// rows of the long side.
type Orientation uint8

const (
	L2R_U2D Orientation = iota // left to right, up to down
	L2R_D2U
	R2L_U2D
	R2L_D2U
	U2D_L2R
	U2D_R2L
	D2U_L2R
	D2U_R2L
)

// Physical panel dimensions in pixels.
const (
	LongSide  = 480
	ShortSide = 320
)

// scanRegs holds the register payloads for one orientation.
type scanRegs struct {
	name     string
	madctl   byte // 0x36 memory access control
	dispFunc byte // 0xB6 display function control, second parameter
	vertical bool // long side is horizontal
}

var scanTable = [...]scanRegs{
	L2R_U2D: {"L2R_U2D", 0x08, 0x22, false},
	L2R_D2U: {"L2R_D2U", 0x08, 0x62, false},
	R2L_U2D: {"R2L_U2D", 0x08, 0x02, false},
	R2L_D2U: {"R2L_D2U", 0x08, 0x42, false},
	U2D_L2R: {"U2D_L2R", 0x28, 0x22, true},
	U2D_R2L: {"U2D_R2L", 0x28, 0x02, true},
	D2U_L2R: {"D2U_L2R", 0x28, 0x62, true},
	D2U_R2L: {"D2U_R2L", 0x28, 0x42, true},
}

// Valid reports whether o is one of the eight defined values.
func (o Orientation) Valid() bool {
	return int(o) < len(scanTable)
}

// Horizontal reports whether rows run along the short side, giving a
// ShortSide x LongSide (portrait) geometry.
func (o Orientation) Horizontal() bool {
	return o.Valid() && !scanTable[o].vertical
}

// Size returns width and height in pixels for o.
func (o Orientation) Size() (w, h int) {
	if o.Horizontal() {
		return ShortSide, LongSide
	}
	return LongSide, ShortSide
}

func (o Orientation) String() string {
	if !o.Valid() {
		return fmt.Sprintf("Orientation(%d)", uint8(o))
	}
	return scanTable[o].name
}

// ParseOrientation maps names such as "L2R_U2D" to an Orientation.
func ParseOrientation(name string) (Orientation, error) {
	for i, r := range scanTable {
		if r.name == name {
			return Orientation(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOrientation, name)
}
