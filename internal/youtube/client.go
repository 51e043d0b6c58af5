package youtube

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/text/language"

	"github.com/nao1215/ytscan/internal/model"
	"github.com/nao1215/ytscan/internal/tree"
)

// Defaults used by NewClient.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxRedirects = 10
)

// DefaultLanguages are the preferred page languages. Russian first keeps the
// count suffixes in the form the default unit table understands.
var DefaultLanguages = []language.Tag{language.MustParse("ru-RU"), language.AmericanEnglish}

// Document is a fetched page together with its decoded ytInitialData.
type Document struct {
	// Page is the HTTP response.
	Page *model.Page

	// Data is the decoded ytInitialData, nil when the page has none.
	Data *tree.Node
}

// Client fetches YouTube pages.
type Client struct {
	httpClient     *http.Client
	userAgent      string
	acceptLanguage string
	maxBodySize    int64
	logger         *slog.Logger

	timeout   time.Duration
	proxyAddr string
	languages []language.Tag
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the timeout of a single request, redirects included.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLanguages sets the preferred languages, most preferred first.
func WithLanguages(tags ...language.Tag) ClientOption {
	return func(c *Client) {
		if len(tags) > 0 {
			c.languages = tags
		}
	}
}

// WithProxy routes requests through the SOCKS5 proxy at addr (host:port).
func WithProxy(addr string) ClientOption {
	return func(c *Client) {
		c.proxyAddr = addr
	}
}

// WithMaxBodySize limits how much of a response body is read.
func WithMaxBodySize(size int64) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a Client. It fails only for a malformed proxy address;
// the proxy itself is not contacted.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		userAgent:   DefaultUserAgent,
		maxBodySize: model.MaxPageSize,
		logger:      slog.Default(),
		timeout:     DefaultTimeout,
		languages:   DefaultLanguages,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.acceptLanguage = AcceptLanguage(c.languages...)

	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // DefaultTransport is always *http.Transport
	transport.MaxIdleConnsPerHost = 4
	transport.IdleConnTimeout = 30 * time.Second

	if c.proxyAddr != "" {
		if !isValidProxyAddress(c.proxyAddr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, c.proxyAddr)
		}
		dialer, err := proxy.SOCKS5("tcp", c.proxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	c.httpClient = &http.Client{
		Transport: transport,
		Timeout:   c.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return c, nil
}

// ForSite returns a copy of c that adds cookie and headers to every
// request. The copy shares the connection pool and cookie jar with c.
func (c *Client) ForSite(cookie string, headers map[string]string) *Client {
	if cookie == "" && len(headers) == 0 {
		return c
	}
	clone := *c
	httpClient := *c.httpClient
	httpClient.Transport = &headerInjectingTransport{
		base:    c.httpClient.Transport,
		cookie:  cookie,
		headers: headers,
	}
	clone.httpClient = &httpClient
	return &clone
}

// AcceptLanguage returns the Accept-Language value for tags, most preferred
// first. Each regional tag is followed by its base language, and quality
// drops by 0.1 per entry, e.g. "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7".
func AcceptLanguage(tags ...language.Tag) string {
	var (
		parts []string
		seen  = make(map[string]bool)
	)
	add := func(s string) {
		if s == "" || s == "und" || seen[s] {
			return
		}
		seen[s] = true
		q := 10 - len(parts)
		if q < 1 {
			q = 1
		}
		if q == 10 {
			parts = append(parts, s)
			return
		}
		parts = append(parts, s+";q=0."+strconv.Itoa(q))
	}
	for _, tag := range tags {
		add(tag.String())
		base, _ := tag.Base()
		add(base.String())
	}
	return strings.Join(parts, ",")
}

// Fetch downloads url. Any status other than 200 OK is reported as
// ErrHTTPStatus together with the page that was received.
func (c *Client) Fetch(ctx context.Context, url string) (*model.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", c.acceptLanguage)

	c.logger.Debug("fetching page", "url", url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	page := &model.Page{
		URL:         url,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Headers:     resp.Header,
		ContentType: resp.Header.Get("Content-Type"),
		Raw:         body,
		FetchedAt:   time.Now(),
	}
	page.ComputeHash()
	page.TruncateRaw()
	if page.IsHTML() || page.ContentType == "" {
		page.Title = PageTitle(body)
	}

	c.logger.Debug("fetched page",
		"url", url,
		"status", resp.StatusCode,
		"bytes", len(body),
	)

	if resp.StatusCode != http.StatusOK {
		return page, fmt.Errorf("%w: %s returned %d", ErrHTTPStatus, url, resp.StatusCode)
	}
	return page, nil
}

// FetchPage downloads url and decodes its ytInitialData. When the page has
// no initial data the returned error wraps ErrNoInitialData and the
// document still carries the page, so callers can fall back to its title.
func (c *Client) FetchPage(ctx context.Context, url string) (*Document, error) {
	page, err := c.Fetch(ctx, url)
	if err != nil {
		if page == nil {
			return nil, err
		}
		return &Document{Page: page}, err
	}

	data, err := ExtractInitialData(page.Raw)
	if err != nil {
		c.logger.Debug("no initial data", "url", url)
		return &Document{Page: page}, fmt.Errorf("%s: %w", url, err)
	}
	return &Document{Page: page, Data: data}, nil
}

// isValidProxyAddress reports whether address is host:port with a port in
// 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// headerInjectingTransport adds a cookie and fixed headers to every request,
// redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
