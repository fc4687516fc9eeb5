package tracker

import "math"

// Spherical-Earth radius used for great-circle distances.
const earthRadiusM = 6371000.0

// HaversineMeters returns the great-circle distance between two coordinates
// on a spherical-Earth approximation.
func HaversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// speedSmoother is a fixed-size trailing moving average over raw GPS speeds,
// damping jitter before qualification and max-speed checks.
type speedSmoother struct {
	buf   [5]float64
	idx   int
	count int
}

// add records a raw speed and returns the current smoothed value.
func (s *speedSmoother) add(raw float64) float64 {
	s.buf[s.idx] = raw
	s.idx = (s.idx + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
	sum := 0.0
	for i := 0; i < s.count; i++ {
		sum += s.buf[i]
	}
	return sum / float64(s.count)
}

// reset clears the window. Called at each new session start so the gap
// between sessions produces no phantom speed.
func (s *speedSmoother) reset() {
	s.idx = 0
	s.count = 0
}
