// Package raster decodes categorical weather state from JMA raster tile
// pixels. The two colour tables have different default arms: the
// distribution map tolerates unknown colours, the radar table does not.
package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lox/jmaweather/internal/errs"
	"github.com/lox/jmaweather/internal/models"
)

// ClearColor marks "clear" on the distribution map; whether it reads as
// sunny or clear-night depends on the map's hour.
var ClearColor = color.NRGBA{0xff, 0xaa, 0x00, 0xff}

var weatherByColor = map[color.NRGBA]models.Condition{
	{0xaa, 0xaa, 0xaa, 0xff}: models.ConditionCloudy,
	{0x00, 0x41, 0xff, 0xff}: models.ConditionRainy,
	{0xf2, 0xf2, 0xff, 0xff}: models.ConditionSnowy,
	{0xa0, 0xd2, 0xff, 0xff}: models.ConditionSnowyRainy,
}

// levelByColor is the closed nowcast (hrpns) legend.
var levelByColor = map[color.NRGBA]models.RainLevel{
	{255, 255, 255, 255}: 0,
	{242, 242, 255, 255}: 1,
	{160, 210, 255, 255}: 2,
	{33, 140, 255, 255}:  3,
	{0, 65, 255, 255}:    4,
	{250, 245, 0, 255}:   5,
	{255, 153, 0, 255}:   6,
	{255, 40, 0, 255}:    7,
	{180, 0, 104, 255}:   8,
}

// UnknownColorError is returned for a radar pixel outside the legend.
type UnknownColorError struct {
	Color color.NRGBA
}

func (e *UnknownColorError) Error() string {
	return fmt.Sprintf("unknown rain colour (%d,%d,%d,%d)", e.Color.R, e.Color.G, e.Color.B, e.Color.A)
}

func (e *UnknownColorError) Is(target error) bool {
	return target == errs.UnknownColor
}

// DecodeWeather maps a distribution map pixel to a condition. hour is the
// local hour the map is valid for. Colours outside the table decode to
// exceptional.
func DecodeWeather(c color.Color, hour int) models.Condition {
	px := toNRGBA(c)
	if px == ClearColor {
		return models.Clear(hour)
	}
	if cond, ok := weatherByColor[px]; ok {
		return cond
	}
	return models.ConditionExceptional
}

// DecodeRainLevel maps a nowcast radar pixel to its intensity level. Any
// fully transparent pixel is level 0.
func DecodeRainLevel(c color.Color) (models.RainLevel, error) {
	px := toNRGBA(c)
	if px.A == 0 {
		return 0, nil
	}
	if lvl, ok := levelByColor[px]; ok {
		return lvl, nil
	}
	return 0, &UnknownColorError{Color: px}
}

// PixelAt returns the non-premultiplied colour at (x, y) relative to the
// image origin. Paletted tiles are converted through their palette.
func PixelAt(img image.Image, x, y int) (color.NRGBA, error) {
	b := img.Bounds()
	p := image.Pt(b.Min.X+x, b.Min.Y+y)
	if !p.In(b) {
		return color.NRGBA{}, fmt.Errorf("pixel (%d,%d) outside image %v", x, y, b)
	}
	return toNRGBA(img.At(p.X, p.Y)), nil
}

func toNRGBA(c color.Color) color.NRGBA {
	if n, ok := c.(color.NRGBA); ok {
		return n
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}
