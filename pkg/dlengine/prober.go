package dlengine

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	// UserAgent is sent on every request this engine makes.
	UserAgent = "MyDM/1.0"
	// ProbeTimeout bounds the metadata HEAD request.
	ProbeTimeout = 10 * time.Second
	// SegmentTimeout bounds a single segment GET.
	SegmentTimeout = 30 * time.Second
)

// ProbeResult is what the Prober learns about a resource before any bytes
// are fetched.
type ProbeResult struct {
	Filename  string
	Size      int64
	Resumable bool
}

// Prober issues a HEAD request to learn a resource's size, suggested
// filename, and range support.
type Prober struct {
	Client *http.Client
}

// NewProber builds a Prober around client, defaulting to http.DefaultClient
// equivalents if client is nil.
func NewProber(client *http.Client) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	return &Prober{Client: client}
}

// Probe issues a metadata HEAD request and reads back the resource's size,
// suggested filename, and range support. Redirects are followed by the
// client's default behavior. Any transport failure or non-2xx response
// folds into ErrProbeFailed.
func (p *Prober) Probe(ctx context.Context, rawURL, referer string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProbeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: server returned %s", ErrProbeFailed, resp.Status)
	}

	size, err := parseContentLength(resp.Header.Get("Content-Length"))
	if err != nil {
		return nil, err
	}

	ar := resp.Header.Get("Accept-Ranges")
	resumable := ar != "" && ar != "none"

	return &ProbeResult{
		Filename:  SanitizeFilename(filenameFromResponse(rawURL, resp)),
		Size:      size,
		Resumable: resumable,
	}, nil
}

// parseContentLength reads the raw Content-Length header text, rather than
// trusting resp.ContentLength, so a value the server reports as negative
// is rejected instead of silently normalized away. An absent header is
// not an error: the size is simply unknown, reported as zero.
func parseContentLength(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrContentLengthInvalid, raw)
	}
	return n, nil
}

// filenameFromResponse applies a fixed precedence: Content-Disposition
// filename, then the URL's last path component, then the literal
// fallback "download".
func filenameFromResponse(rawURL string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if fn := strings.Trim(params["filename"], `"`); fn != "" {
				return fn
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			return base
		}
	}
	return "download"
}
