// Package tile converts between WGS84 coordinates and Web-Mercator slippy
// map tiles (256px, n = 2^zoom).
package tile

import (
	"fmt"
	"math"

	"github.com/lox/jmaweather/internal/models"
)

const (
	// Size is the edge length of a tile in pixels.
	Size = 256

	// equatorial ground resolution at zoom 0, metres per pixel
	groundResolution = 156543.03392
)

// ToTile projects a point to its tile and the pixel inside that tile.
func ToTile(lat, lon float64, zoom int) models.TileAddress {
	gx, gy := globalPixel(lat, lon, zoom)
	return models.TileAddress{
		Zoom:   zoom,
		TileX:  int(gx / Size),
		TileY:  int(gy / Size),
		PixelX: int(math.Mod(gx, Size)),
		PixelY: int(math.Mod(gy, Size)),
	}
}

// ToLatLon returns the coordinates of the top-left corner of a pixel.
func ToLatLon(tileX, tileY, pixelX, pixelY, zoom int) (lat, lon float64) {
	n := math.Exp2(float64(zoom))
	x := float64(tileX*Size+pixelX) / (Size * n)
	y := float64(tileY*Size+pixelY) / (Size * n)

	lon = x*360.0 - 180.0
	lat = math.Atan(math.Sinh(math.Pi*(1.0-2.0*y))) * 180.0 / math.Pi
	return lat, lon
}

// MetersPerPixel is the ground resolution at a latitude and zoom.
func MetersPerPixel(lat float64, zoom int) float64 {
	return groundResolution * math.Cos(lat*math.Pi/180.0) / math.Exp2(float64(zoom))
}

// RadarZoom snaps a map zoom (4..14) to the zoom levels the radar tiles
// are published at: 4, 6, 8 and 10.
func RadarZoom(zoom int) (int, error) {
	switch {
	case zoom > 14 || zoom < 4:
		return 0, fmt.Errorf("zoom %d out of range, must be between 4 and 14", zoom)
	case zoom >= 10:
		return 10, nil
	case zoom >= 8:
		return 8, nil
	case zoom >= 6:
		return 6, nil
	default:
		return 4, nil
	}
}

// Bounds is a rectangle in global pixel coordinates at one zoom level,
// Min inclusive and Max exclusive.
type Bounds struct {
	Zoom       int
	MinX, MinY int
	MaxX, MaxY int
}

// Span returns the global pixel rectangle covering radius metres around
// the point.
func Span(lat, lon float64, zoom int, radiusMeters float64) Bounds {
	addr := ToTile(lat, lon, zoom)
	cx := addr.TileX*Size + addr.PixelX
	cy := addr.TileY*Size + addr.PixelY
	r := int(radiusMeters / MetersPerPixel(lat, zoom))
	return Bounds{
		Zoom: zoom,
		MinX: cx - r,
		MinY: cy - r,
		MaxX: cx + r,
		MaxY: cy + r,
	}
}

// Tiles returns the inclusive tile index range touched by the bounds.
func (b Bounds) Tiles() (minX, minY, maxX, maxY int) {
	return floorDiv(b.MinX, Size), floorDiv(b.MinY, Size), floorDiv(b.MaxX, Size), floorDiv(b.MaxY, Size)
}

func (b Bounds) Width() int  { return b.MaxX - b.MinX }
func (b Bounds) Height() int { return b.MaxY - b.MinY }

func globalPixel(lat, lon float64, zoom int) (float64, float64) {
	latRad := lat * math.Pi / 180.0
	n := math.Exp2(float64(zoom))
	x := (lon + 180.0) / 360.0
	y := (1.0 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2.0
	return x * n * Size, y * n * Size
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
