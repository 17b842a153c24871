package main

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const version = "0.3.0"

// client wraps resty for the kernel API. The base address is
// dereferenced per request so the --server flag, parsed after command
// construction, is still honored.
type client struct {
	addr *string
	http *resty.Client
}

func newClient(addr *string) *client {
	r := resty.New().
		SetTimeout(30 * time.Second).
		SetHeader("User-Agent", "deskctl/"+version)
	return &client{addr: addr, http: r}
}

type apiError struct {
	Message string `json:"error"`
}

func (c *client) req() *resty.Request {
	return c.http.R().SetError(&apiError{})
}

func (c *client) check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status(), e.Message)
		}
		return fmt.Errorf("%s", resp.Status())
	}
	return nil
}

func (c *client) get(path string, out interface{}) error {
	r := c.req()
	if out != nil {
		r.SetResult(out)
	}
	resp, err := r.Get(*c.addr + path)
	return c.check(resp, err)
}

// getRaw fetches a path without decoding, for file contents.
func (c *client) getRaw(path string) ([]byte, error) {
	resp, err := c.req().Get(*c.addr + path)
	if cerr := c.check(resp, err); cerr != nil {
		return nil, cerr
	}
	return resp.Body(), nil
}

func (c *client) post(path string, body, out interface{}) error {
	r := c.req()
	if body != nil {
		r.SetBody(body)
	}
	if out != nil {
		r.SetResult(out)
	}
	resp, err := r.Post(*c.addr + path)
	return c.check(resp, err)
}

func (c *client) put(path string, body []byte, out interface{}) error {
	r := c.req().SetBody(body)
	if out != nil {
		r.SetResult(out)
	}
	resp, err := r.Put(*c.addr + path)
	return c.check(resp, err)
}

func (c *client) del(path string, out interface{}) error {
	r := c.req()
	if out != nil {
		r.SetResult(out)
	}
	resp, err := r.Delete(*c.addr + path)
	return c.check(resp, err)
}
