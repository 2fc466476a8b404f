package world

// Position is an immutable tile coordinate with height and facing.
// Rotation is one of the 8 compass directions: 0=N, 1=NE, 2=E, 3=SE,
// 4=S, 5=SW, 6=W, 7=NW.
type Position struct {
	X        int
	Y        int
	Z        float64
	Rotation int
}

// Direction deltas indexed by rotation (0-7).
var rotationDX = [8]int{0, 1, 1, 1, 0, -1, -1, -1}
var rotationDY = [8]int{-1, -1, 0, 1, 1, 1, 0, -1}

// SameTile reports whether two positions refer to the same tile,
// ignoring height and rotation.
func (p Position) SameTile(other Position) bool {
	return p.X == other.X && p.Y == other.Y
}

// Step returns the tile one step away in the given rotation.
func (p Position) Step(rotation int) Position {
	if rotation < 0 || rotation > 7 {
		return p
	}
	return Position{X: p.X + rotationDX[rotation], Y: p.Y + rotationDY[rotation], Z: p.Z, Rotation: rotation}
}

// DistanceSquared returns the squared straight-line distance to other.
// Used as the pathfinder tie-break; avoiding the square root keeps it
// exact integer arithmetic.
func (p Position) DistanceSquared(other Position) int {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return dx*dx + dy*dy
}

// RotationTo returns the compass rotation facing from p toward target.
// Both tiles equal returns p's current rotation.
func (p Position) RotationTo(target Position) int {
	dx := sign(target.X - p.X)
	dy := sign(target.Y - p.Y)
	if dx == 0 && dy == 0 {
		return p.Rotation
	}
	for r := 0; r < 8; r++ {
		if rotationDX[r] == dx && rotationDY[r] == dy {
			return r
		}
	}
	return p.Rotation
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
