// Package openlibrary provides a book metadata lookup client against an
// Open-Library-shaped books API
package openlibrary

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "bestsellers/internal/platform/errors"
	"bestsellers/internal/platform/logger"
)

const (
	baseURLDefault = "https://openlibrary.org"
	defaultTimeout = 10 * time.Second
	defaultUA      = "bestsellers-metadata"

	// responses larger than this are cut off; book payloads are small
	maxBodyBytes = 1 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client looks up one ISBN per call. It performs no retries; callers own
// retry policy and map on the transient/permanent split of returned errors
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("openlibrary"),
		now:  time.Now,
	}
}

// FromConf builds Options from a config view with METADATA_ keys applied by the caller
type Conf interface {
	MayString(key, def string) string
	MayDuration(key string, def time.Duration) time.Duration
}

// NewFromConf creates a Client from configuration
func NewFromConf(cfg Conf) *Client {
	return NewClient(Options{
		BaseURL:   cfg.MayString("BASE_URL", baseURLDefault),
		UserAgent: cfg.MayString("USER_AGENT", defaultUA),
		Timeout:   cfg.MayDuration("TIMEOUT", defaultTimeout),
	})
}

// Lookup fetches metadata for a single ISBN
//
// Error taxonomy: unknown identifier or malformed payload comes back as a
// permanent lookup error; network failures, 429 and 5xx come back transient
func (c *Client) Lookup(ctx context.Context, isbn string) (Book, error) {
	bibkey := "ISBN:" + isbn
	u := c.opts.BaseURL + "/api/books?bibkeys=" + url.QueryEscape(bibkey) + "&format=json&jscmd=data"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Book{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "openlibrary new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Book{}, ctx.Err()
		}
		return Book{}, perr.Wrapf(err, perr.ErrorCodeLookupTransient, "openlibrary transport error for %s", isbn)
	}
	defer func() { _ = resp.Body.Close() }()

	lat := c.now().Sub(start)
	c.log.Debug().
		Str("isbn", isbn).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("openlibrary lookup")

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnprocessableEntity:
		return Book{}, perr.LookupPermanentf("openlibrary has no record for %s (status %d)", isbn, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Book{}, perr.Newf(perr.ErrorCodeTooManyRequests, "openlibrary rate limited for %s", isbn)
	case resp.StatusCode >= 500:
		return Book{}, perr.LookupTransientf("openlibrary upstream error %d for %s", resp.StatusCode, isbn)
	default:
		return Book{}, perr.LookupPermanentf("openlibrary unexpected status %d for %s", resp.StatusCode, isbn)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Book{}, perr.Wrapf(err, perr.ErrorCodeLookupTransient, "openlibrary read body for %s", isbn)
	}

	var wire map[string]bookPayload
	if err := json.Unmarshal(body, &wire); err != nil {
		return Book{}, perr.Wrapf(err, perr.ErrorCodeLookupPermanent, "openlibrary malformed payload for %s", isbn)
	}

	p, ok := wire[bibkey]
	if !ok {
		// the books API answers 200 with an empty object for unknown keys
		return Book{}, perr.LookupPermanentf("openlibrary has no record for %s", isbn)
	}
	if strings.TrimSpace(p.Title) == "" {
		return Book{}, perr.LookupPermanentf("openlibrary record for %s has no title", isbn)
	}

	return Book{
		ISBN:      isbn,
		Title:     p.Title,
		Author:    joinNames(p.Authors),
		Category:  firstName(p.Subjects),
		CoverURL:  pickCover(p.Cover),
		Published: p.PublishDate,
	}, nil
}

func joinNames(refs []nameRef) string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if n := strings.TrimSpace(r.Name); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

func firstName(refs []nameRef) string {
	for _, r := range refs {
		if n := strings.TrimSpace(r.Name); n != "" {
			return n
		}
	}
	return ""
}

func pickCover(c coverSet) string {
	switch {
	case c.Large != "":
		return c.Large
	case c.Medium != "":
		return c.Medium
	default:
		return c.Small
	}
}
