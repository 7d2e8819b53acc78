package unit

import "math"

// Position is a world location plus facing angle in radians.
type Position struct {
	X, Y, Z float32
	O       float32
}

// Distance returns the 3D distance between p and q.
func (p Position) Distance(q Position) float32 {
	dx := float64(p.X - q.X)
	dy := float64(p.Y - q.Y)
	dz := float64(p.Z - q.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// AngleTo returns the absolute bearing from p to q in [0, 2π).
func (p Position) AngleTo(q Position) float32 {
	a := math.Atan2(float64(q.Y-p.Y), float64(q.X-p.X))
	if a < 0 {
		a += 2 * math.Pi
	}
	return float32(a)
}

// InArc reports whether q lies within an arc of width arc centred on p's facing.
func (p Position) InArc(q Position, arc float32) bool {
	if p.X == q.X && p.Y == q.Y {
		return true
	}
	diff := normalizeAngle(float64(p.AngleTo(q) - p.O))
	if diff > math.Pi {
		diff -= 2 * math.Pi
	}
	return math.Abs(diff) <= float64(arc)/2
}

// Toward returns the point dist yards from p along the line to q.
// The result never overshoots q.
func (p Position) Toward(q Position, dist float32) Position {
	total := p.Distance(q)
	if total <= dist || total == 0 {
		return Position{X: q.X, Y: q.Y, Z: q.Z, O: p.O}
	}
	f := dist / total
	return Position{
		X: p.X + (q.X-p.X)*f,
		Y: p.Y + (q.Y-p.Y)*f,
		Z: p.Z + (q.Z-p.Z)*f,
		O: p.O,
	}
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
