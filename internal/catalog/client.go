// Package catalog fetches the product list from the upstream product API.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// DefaultEndpoint is the public product-list endpoint.
const DefaultEndpoint = "https://fakestoreapi.com/products"

var _ product.Source = (*Client)(nil)

// StatusError is returned when the catalog responds with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected catalog status: %d", e.Code)
}

// Config holds Client settings.
type Config struct {
	Endpoint string
	// Timeout bounds a single fetch. Zero means no timeout.
	Timeout time.Duration
}

// Client implements product.Source over HTTP. Every List call issues exactly
// one request; there is no retry.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient returns a Client using httpClient for transport. When httpClient
// is nil a fresh client is used.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout > 0 {
		c := *httpClient
		c.Timeout = cfg.Timeout
		httpClient = &c
	}
	return &Client{http: httpClient, endpoint: cfg.Endpoint}
}

// Endpoint returns the product-list URL the client fetches.
func (c *Client) Endpoint() string { return c.endpoint }

// List fetches and decodes the full product list.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	products, err := decodeProducts(jx.Decode(resp.Body, 4096))
	if err != nil {
		return nil, errors.Wrap(err, "decode products")
	}
	return products, nil
}

// decodeProducts reads a JSON array of product objects.
func decodeProducts(d *jx.Decoder) ([]product.Product, error) {
	var out []product.Product
	if err := d.Arr(func(d *jx.Decoder) error {
		p, err := decodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product %d", len(out))
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, err
	}
	if out == nil {
		out = []product.Product{}
	}
	return out, nil
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p     product.Product
		hasID bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Int64()
			hasID = err == nil
		case "title":
			p.Title, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "description":
			p.Description, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		case "price":
			var num jx.Num
			if num, err = d.Num(); err == nil {
				p.Price, err = decimal.NewFromString(string(num))
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return p, err
	}
	if !hasID {
		return p, errors.New("missing id")
	}
	return p, nil
}
