// Package confluence publishes generated QA documents to a Confluence
// Cloud space: one page per document, with the original file attached.
package confluence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	goconfluence "github.com/virtomize/confluence-go-api"
)

// apiPath is the REST API root below the site URL.
const apiPath = "/wiki/rest/api"

// DefaultTimeout bounds every request when the caller supplies no client.
const DefaultTimeout = 30 * time.Second

// Environment variables read by ConfigFromEnv.
const (
	EnvURL          = "CONFLUENCE_URL"
	EnvEmail        = "CONFLUENCE_EMAIL"
	EnvAPIToken     = "CONFLUENCE_API_TOKEN"
	EnvSpaceKey     = "CONFLUENCE_SPACE_KEY"
	EnvParentPageID = "CONFLUENCE_PARENT_PAGE_ID"
)

// placeholderURL is the value shipped in example .env files.
const placeholderURL = "https://your-domain.atlassian.net"

var (
	// ErrAuth is returned when the site rejects the email and API token.
	ErrAuth = errors.New("authentication failed - check email and API token")

	// ErrSpaceNotFound is returned when the configured space does not exist.
	ErrSpaceNotFound = errors.New("space not found")
)

// Config identifies the site, the account and where pages are created.
type Config struct {
	URL          string `yaml:"url"`
	Email        string `yaml:"email"`
	APIToken     string `yaml:"-"`
	SpaceKey     string `yaml:"space_key"`
	ParentPageID string `yaml:"parent_page_id"`
}

// ConfigFromEnv reads the CONFLUENCE_* variables through lookup.
func ConfigFromEnv(lookup func(string) (string, bool)) Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	return Config{
		URL:          get(EnvURL),
		Email:        get(EnvEmail),
		APIToken:     get(EnvAPIToken),
		SpaceKey:     get(EnvSpaceKey),
		ParentPageID: get(EnvParentPageID),
	}
}

// Merge fills empty fields of c from other.
func (c Config) Merge(other Config) Config {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Config{
		URL:          pick(c.URL, other.URL),
		Email:        pick(c.Email, other.Email),
		APIToken:     pick(c.APIToken, other.APIToken),
		SpaceKey:     pick(c.SpaceKey, other.SpaceKey),
		ParentPageID: pick(c.ParentPageID, other.ParentPageID),
	}
}

// Configured reports whether a real site URL is set.
func (c Config) Configured() bool {
	return c.URL != "" && c.URL != placeholderURL
}

// Validate reports every missing required field.
func (c Config) Validate() error {
	var missing []string
	if !c.Configured() {
		missing = append(missing, EnvURL)
	}
	if c.Email == "" {
		missing = append(missing, EnvEmail)
	}
	if c.APIToken == "" {
		missing = append(missing, EnvAPIToken)
	}
	if c.SpaceKey == "" {
		missing = append(missing, EnvSpaceKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("confluence is not configured: missing %s", strings.Join(missing, ", "))
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return fmt.Errorf("invalid %s %q: %w", EnvURL, c.URL, err)
	}
	return nil
}

// APIError is an unexpected response from the REST API.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("confluence %s failed (status %d): %s", e.Op, e.StatusCode, e.Body)
}

// Logger receives diagnostic messages from the client.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client publishes pages through the Confluence REST API with basic auth.
type Client struct {
	cfg    Config
	http   *http.Client
	logger Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.URL = strings.TrimSuffix(cfg.URL, "/")
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SpaceKey returns the configured space.
func (c *Client) SpaceKey() string {
	return c.cfg.SpaceKey
}

// call is one API round trip bound to ctx. goconfluence reports failures
// as plain strings, so the transport keeps the last status code.
type call struct {
	api       *goconfluence.API
	transport *statusTransport
}

func (c *Client) newCall(ctx context.Context) (*call, error) {
	api, err := goconfluence.NewAPI(c.cfg.URL+apiPath, c.cfg.Email, c.cfg.APIToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create confluence api: %w", err)
	}
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	t := &statusTransport{ctx: ctx, base: base}
	api.Client = &http.Client{Transport: t, Timeout: c.http.Timeout}
	return &call{api: api, transport: t}, nil
}

// fail converts a goconfluence error into ErrAuth, an APIError or a
// transport error.
func (cl *call) fail(op string, err error) error {
	status := cl.transport.status
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuth
	case status >= 300:
		return &APIError{Op: op, StatusCode: status, Body: truncate(err.Error())}
	default:
		return fmt.Errorf("confluence %s failed: %w", op, err)
	}
}

type statusTransport struct {
	ctx    context.Context
	base   http.RoundTripper
	status int
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req.WithContext(t.ctx))
	if err != nil {
		return nil, err
	}
	t.status = resp.StatusCode
	return resp, nil
}

// CheckSpace verifies the credentials and that the space exists.
func (c *Client) CheckSpace(ctx context.Context) error {
	cl, err := c.newCall(ctx)
	if err != nil {
		return err
	}
	spaces, err := cl.api.GetAllSpaces(goconfluence.AllSpacesQuery{SpaceKey: c.cfg.SpaceKey, Limit: 1})
	if err != nil {
		if cl.transport.status == http.StatusNotFound {
			return fmt.Errorf("%w: %q", ErrSpaceNotFound, c.cfg.SpaceKey)
		}
		return cl.fail("space lookup", err)
	}
	for _, s := range spaces.Results {
		if strings.EqualFold(s.Key, c.cfg.SpaceKey) {
			c.debugf("connected to space %s", c.cfg.SpaceKey)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrSpaceNotFound, c.cfg.SpaceKey)
}

// Page is a created page.
type Page struct {
	ID    string
	Title string
	URL   string
}

// CreatePage creates a page in the configured space, under the parent page
// when one is configured. body is storage-format XHTML.
func (c *Client) CreatePage(ctx context.Context, title, body string) (*Page, error) {
	content := &goconfluence.Content{
		Type:  "page",
		Title: title,
		Space: &goconfluence.Space{Key: c.cfg.SpaceKey},
		Body: goconfluence.Body{
			Storage: goconfluence.Storage{Value: body, Representation: "storage"},
		},
	}
	if c.cfg.ParentPageID != "" {
		content.Ancestors = []goconfluence.Ancestor{{ID: c.cfg.ParentPageID}}
	}

	cl, err := c.newCall(ctx)
	if err != nil {
		return nil, err
	}
	created, err := cl.api.CreateContent(content)
	if err != nil {
		return nil, cl.fail("page creation", err)
	}

	page := &Page{ID: created.ID, Title: created.Title}
	if page.Title == "" {
		page.Title = title
	}
	if created.Links != nil && created.Links.WebUI != "" {
		base := created.Links.Base
		if base == "" {
			base = c.cfg.URL + "/wiki"
		}
		page.URL = base + created.Links.WebUI
	}
	c.debugf("created page %s (%s)", page.ID, page.Title)
	return page, nil
}

// Attach uploads data as an attachment of the page.
func (c *Client) Attach(ctx context.Context, pageID, filename string, data []byte) error {
	cl, err := c.newCall(ctx)
	if err != nil {
		return err
	}
	if _, err := cl.api.UploadAttachment(url.PathEscape(pageID), filename, bytes.NewReader(data)); err != nil {
		return cl.fail("attachment upload", err)
	}
	c.debugf("attached %s to page %s", filename, pageID)
	return nil
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.LogDebug(fmt.Sprintf(format, args...))
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
