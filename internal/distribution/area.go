// Package distribution resolves a point to a tile of the JMA estimated
// weather distribution map (推計気象分布) and reads the weather there.
package distribution

import (
	"bufio"
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/models"
)

var maxCenterDistance = math.Sqrt(0.5)

// ParseAreaTable parses area.properties. Each line looks like
//
//	3016=posN\=43.5&posS\=42.5&posE\=142&posW\=140.5&
//
// Comments, blank lines and lines without all four bounds are skipped.
func ParseAreaTable(text string) ([]models.AreaRectangle, error) {
	var rects []models.AreaRectangle

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rect, ok := parseAreaLine(line)
		if !ok {
			continue
		}
		rects = append(rects, rect)
	}
	if err := sc.Err(); err != nil {
		return nil, errs.Wrap(errs.LookupFailure, "parse area table", err)
	}
	if len(rects) == 0 {
		return nil, errs.New(errs.LookupFailure, "parse area table", "no usable rectangles")
	}
	return rects, nil
}

func parseAreaLine(line string) (models.AreaRectangle, bool) {
	code, rest, ok := strings.Cut(line, "=")
	if !ok || code == "" {
		return models.AreaRectangle{}, false
	}

	// some lines carry stray separators at either end
	rest = strings.Trim(rest, "&")

	fields := make(map[string]float64, 4)
	for _, tok := range strings.Split(rest, "&") {
		if tok == "" {
			continue
		}
		k, v, ok := strings.Cut(tok, `\=`)
		if !ok {
			return models.AreaRectangle{}, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return models.AreaRectangle{}, false
		}
		fields[strings.ReplaceAll(k, `\`, "")] = f
	}

	rect := models.AreaRectangle{Code: code, Level: len(code)}
	if code == "000" {
		rect.Level = 1
	}

	var n, s, e, w bool
	rect.North, n = fields["posN"]
	rect.South, s = fields["posS"]
	rect.East, e = fields["posE"]
	rect.West, w = fields["posW"]
	if !n || !s || !e || !w {
		return models.AreaRectangle{}, false
	}
	if rect.North == rect.South || rect.East == rect.West {
		return models.AreaRectangle{}, false
	}
	return rect, true
}

// Locate picks the rectangle to read the point from: the deepest level
// first, then the one whose centre is closest. Ties keep table order. The
// winner need not contain the point.
func Locate(rects []models.AreaRectangle, p models.GeoPoint) (models.AreaRectangle, error) {
	if len(rects) == 0 {
		return models.AreaRectangle{}, errs.New(errs.LookupFailure, "locate", "empty area table")
	}

	var best models.AreaRectangle
	for i, r := range rects {
		r.X = (p.Longitude - r.West) / (r.East - r.West)
		r.Y = (r.North - p.Latitude) / (r.North - r.South)
		d := math.Hypot(r.X-0.5, r.Y-0.5)
		r.Score = math.Max(0, 1-d/maxCenterDistance)
		if i == 0 || better(r, best) {
			best = r
		}
	}
	return best, nil
}

func better(a, b models.AreaRectangle) bool {
	if a.Level != b.Level {
		return a.Level > b.Level
	}
	return a.Score > b.Score
}

// PixelFor converts the located offset into a pixel on a map of the given
// size.
func PixelFor(r models.AreaRectangle, width, height int) image.Point {
	return image.Pt(int(r.X*float64(width)), int(r.Y*float64(height)))
}
