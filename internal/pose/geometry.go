package pose

import "math"

// Angle returns the angle ABC in degrees, in [0, 180], with b as the vertex.
// If either arm of the angle has zero length the result is 0.
func Angle(a, b, c Point) float64 {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	magBA := math.Sqrt(bax*bax + bay*bay)
	magBC := math.Sqrt(bcx*bcx + bcy*bcy)
	if magBA == 0 || magBC == 0 {
		return 0
	}

	cos := (bax*bcx + bay*bcy) / (magBA * magBC)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// JointAngle is Angle over three landmark indices of a frame.
func (f Frame) JointAngle(a, b, c int) float64 {
	return Angle(f.At(a), f.At(b), f.At(c))
}

// Validate reports whether every required index is present and usable.
func Validate(f Frame, required []int) bool {
	for _, i := range required {
		if i < 0 || i >= len(f.Landmarks) {
			return false
		}
		if !f.Landmarks[i].Usable() {
			return false
		}
	}
	return true
}
