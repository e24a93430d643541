package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running provisioning server. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type urlBuilder struct {
	base       string
	path       string
	pathParams map[string]string
	query      url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{
		base:       c.baseURL,
		pathParams: make(map[string]string),
		query:      url.Values{},
	}
}

func (b *urlBuilder) setPath(path string) *urlBuilder {
	b.path = path
	return b
}

// setPathParam substitutes a {name} placeholder in the path.
func (b *urlBuilder) setPathParam(name, value string) *urlBuilder {
	b.pathParams[name] = value
	return b
}

func (b *urlBuilder) addQueryParam(key, value string) *urlBuilder {
	b.query.Add(key, value)
	return b
}

func (b *urlBuilder) build() string {
	path := b.path
	for name, value := range b.pathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", url.PathEscape(value))
	}
	out := b.base + path
	if len(b.query) > 0 {
		out += "?" + b.query.Encode()
	}
	return out
}
