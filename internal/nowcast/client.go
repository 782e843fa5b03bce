package nowcast

import (
	"context"
	"fmt"
	"image"
)

const DefaultBaseURL = "https://www.jma.go.jp"

// Source fetches JMA resources. *httputil.Fetcher satisfies it.
type Source interface {
	JSON(ctx context.Context, endpoint, url string, v any) error
	Image(ctx context.Context, endpoint, url string) (image.Image, error)
}

// Client reads the nowcast target times and hrpns tiles from JMA.
type Client struct {
	src     Source
	baseURL string
}

func NewClient(src Source) *Client {
	return &Client{src: src, baseURL: DefaultBaseURL}
}

func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// TargetTimes returns the observed (N1) and forecast (N2) frames.
func (c *Client) TargetTimes(ctx context.Context) (past, future []TargetTime, err error) {
	if err := c.src.JSON(ctx, "nowc_times", c.baseURL+"/bosai/jmatile/data/nowc/targetTimes_N1.json", &past); err != nil {
		return nil, nil, fmt.Errorf("fetch N1 target times: %w", err)
	}
	if err := c.src.JSON(ctx, "nowc_times", c.baseURL+"/bosai/jmatile/data/nowc/targetTimes_N2.json", &future); err != nil {
		return nil, nil, fmt.Errorf("fetch N2 target times: %w", err)
	}
	return past, future, nil
}

func (c *Client) Timeline(ctx context.Context) ([]TargetTime, error) {
	past, future, err := c.TargetTimes(ctx)
	if err != nil {
		return nil, err
	}
	return Timeline(past, future)
}

// Tile fetches one hrpns radar tile.
func (c *Client) Tile(ctx context.Context, t TargetTime, zoom, x, y int) (image.Image, error) {
	url := fmt.Sprintf("%s/bosai/jmatile/data/nowc/%s/none/%s/surf/hrpns/%d/%d/%d.png",
		c.baseURL, t.BaseTime, t.ValidTime, zoom, x, y)
	return c.src.Image(ctx, "nowc_tile", url)
}

// BaseTile fetches a GSI pale base map tile, used under the radar frames
// when rendering animations.
func (c *Client) BaseTile(ctx context.Context, zoom, x, y int) (image.Image, error) {
	url := fmt.Sprintf("%s/tile/gsi/pale/%d/%d/%d.png", c.baseURL, zoom, x, y)
	return c.src.Image(ctx, "gsi_tile", url)
}
