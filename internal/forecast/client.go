package forecast

import (
	"context"
	"fmt"
)

const DefaultBaseURL = "https://www.jma.go.jp"

// Source fetches JMA resources. *httputil.Fetcher satisfies it.
type Source interface {
	JSON(ctx context.Context, endpoint, url string, v any) error
}

// Client fetches the documents the forecast normalizer consumes.
type Client struct {
	src     Source
	baseURL string
}

func NewClient(src Source) *Client {
	return &Client{src: src, baseURL: DefaultBaseURL}
}

func (c *Client) SetBaseURL(u string) { c.baseURL = u }

func (c *Client) AreaTable(ctx context.Context) (AreaTable, error) {
	var t AreaTable
	if err := c.src.JSON(ctx, "area", c.baseURL+"/bosai/common/const/area.json", &t); err != nil {
		return AreaTable{}, fmt.Errorf("fetch area table: %w", err)
	}
	return t, nil
}

// Document fetches the forecast for an office.
func (c *Client) Document(ctx context.Context, office string) (Document, error) {
	var doc Document
	url := fmt.Sprintf("%s/bosai/forecast/data/forecast/%s.json", c.baseURL, office)
	if err := c.src.JSON(ctx, "forecast", url, &doc); err != nil {
		return nil, fmt.Errorf("fetch forecast %s: %w", office, err)
	}
	return doc, nil
}

// VPFD fetches the point forecast for a class10 area.
func (c *Client) VPFD(ctx context.Context, class10 string) (VPFDDocument, error) {
	var doc VPFDDocument
	url := fmt.Sprintf("%s/bosai/jmatile/data/wdist/VPFD/%s.json", c.baseURL, class10)
	if err := c.src.JSON(ctx, "vpfd", url, &doc); err != nil {
		return VPFDDocument{}, fmt.Errorf("fetch vpfd %s: %w", class10, err)
	}
	return doc, nil
}
