package spatial

import "github.com/jengzang/tripguide-backend-go/internal/models"

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// approximate cell width at the equator in meters, indexed by precision-1
var geohashCellMeters = [12]float64{5000000, 625000, 123000, 19500, 3900, 610, 120, 19, 3.7, 0.6, 0.12, 0.019}

func clampPrecision(p int) int {
	return min(max(p, 1), 12)
}

// bisect halves the interval and reports whether v fell in the upper half
func bisect(v float64, interval *[2]float64) bool {
	mid := (interval[0] + interval[1]) / 2
	if v > mid {
		interval[0] = mid
		return true
	}
	interval[1] = mid
	return false
}

// EncodeGeohash encodes a latitude/longitude pair with precision characters (1~12).
// Bits alternate longitude first, five bits per character.
func EncodeGeohash(lat, lng float64, precision int) string {
	precision = clampPrecision(precision)
	lats := [2]float64{-90, 90}
	lngs := [2]float64{-180, 180}

	out := make([]byte, precision)
	even := true
	for i := range out {
		var idx byte
		for range 5 {
			var upper bool
			if even {
				upper = bisect(lng, &lngs)
			} else {
				upper = bisect(lat, &lats)
			}
			idx <<= 1
			if upper {
				idx |= 1
			}
			even = !even
		}
		out[i] = geohashAlphabet[idx]
	}
	return string(out)
}

// GeohashCellSize returns the approximate cell width in meters, 0 for an unknown precision
func GeohashCellSize(precision int) float64 {
	if precision < 1 || precision > 12 {
		return 0
	}
	return geohashCellMeters[precision-1]
}

// GeohashPrecisionForDistance returns the coarsest precision whose cell fits inside distanceMeters
func GeohashPrecisionForDistance(distanceMeters float64) int {
	for i, size := range geohashCellMeters {
		if size <= distanceMeters {
			return i + 1
		}
	}
	return 12
}

// CellKey keys a coordinate by its geohash cell; invalid coordinates share the "-" key
func CellKey(c models.Coordinate, precision int) string {
	if !c.Valid() {
		return "-"
	}
	return EncodeGeohash(c.Lat, c.Lng, precision)
}
