package geometry

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point2D, polygon []Point2D) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Check if ray from p going right intersects edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}

	return inside
}

// ClosedRing returns a copy of points with the first point appended when
// the ring is not already closed.
func ClosedRing(points []Point2D) []Point2D {
	if len(points) == 0 {
		return nil
	}
	ring := make([]Point2D, len(points), len(points)+1)
	copy(ring, points)
	if points[0] != points[len(points)-1] {
		ring = append(ring, points[0])
	}
	return ring
}

