// internal/fetch/verbs.go
//
// Per-verb convenience wrappers: pure partial application of Request with
// the method fixed.  Body-bearing verbs take the body before Options,
// mirroring the argument order call sites actually want.
package fetch

import (
	"context"
	"encoding/json"
	"net/http"
)

func (c *Client) Get(ctx context.Context, url string, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodGet, opts, q, nil)
}

func (c *Client) Post(ctx context.Context, url string, body any, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodPost, opts, q, body)
}

func (c *Client) Put(ctx context.Context, url string, body any, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodPut, opts, q, body)
}

func (c *Client) Patch(ctx context.Context, url string, body any, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodPatch, opts, q, body)
}

func (c *Client) Delete(ctx context.Context, url string, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodDelete, opts, q, nil)
}

func (c *Client) Options(ctx context.Context, url string, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodOptions, opts, q, nil)
}

func (c *Client) Head(ctx context.Context, url string, opts Options, q Query) (json.RawMessage, error) {
	return c.Request(ctx, url, http.MethodHead, opts, q, nil)
}
