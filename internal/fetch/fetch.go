// Package fetch turns an HTTP resource into a parallex.Source of byte
// chunks read via ranged GETs, the way the teacher's worker pulled
// "Range: bytes=" windows of a download and wrote them at an offset. Here
// the chunks are handed to an AsyncBuf/LazyMap pipeline instead of a file.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/h2non/filetype"
	"github.com/vfaronov/httpheader"
)

// Chunk is one ranged read: the bytes themselves, their starting offset in
// the resource, and whether this was the final chunk.
type Chunk struct {
	Data   []byte
	Offset int64
	Last   bool
}

// Info is what Probe's HEAD request discovers about a resource before
// chunked reading begins.
type Info struct {
	URL           string
	TotalSize     int64 // -1 if unknown
	AcceptsRanges bool
	// ContentType is the Content-Type header Probe received, empty if the
	// server sent none. Probe does not sniff content; Source sniffs the
	// first chunk when this is empty, but only into its own copy of Info,
	// so the caller's Info keeps the header value.
	ContentType string
}

// Client wraps an *http.Client configured with the same private-IP guard
// the original downloader applied to outbound dials, so fetch never quietly
// follows a redirect or DNS answer into a loopback or RFC1918 address.
type Client struct {
	http *http.Client
}

// NewClient builds a Client. allowPrivateIPs mirrors the SURGE_ALLOW_PRIVATE_IPS
// escape hatch: false enforces the guard, true disables it for local testing.
func NewClient(timeout time.Duration, allowPrivateIPs bool) *Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	transport := &http.Transport{
		DialContext: safeDialContext(dialer, allowPrivateIPs),
	}
	return &Client{http: &http.Client{Timeout: timeout, Transport: transport}}
}

// Probe issues a Range-aware HEAD request to discover resource size and
// range support before any chunk is read.
func (c *Client) Probe(ctx context.Context, rawURL string) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("build probe request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", SanitizeURL(rawURL), err)
	}
	defer resp.Body.Close()

	info := Info{URL: rawURL, TotalSize: resp.ContentLength, ContentType: resp.Header.Get("Content-Type")}
	ranges := httpheader.AcceptRanges(resp.Header)
	for _, u := range ranges {
		if u == "bytes" {
			info.AcceptsRanges = true
		}
	}
	if info.TotalSize < 0 {
		info.TotalSize = -1
	}
	return info, nil
}

// Source returns a parallex.Source-compatible pull function: each call
// performs one ranged GET of chunkSize bytes and advances the cursor. The
// function signature intentionally matches parallex.Source[Chunk] without
// importing the root package, keeping fetch usable standalone.
func (c *Client) Source(ctx context.Context, info Info, chunkSize int64) func() (Chunk, bool, error) {
	var offset int64
	sniffed := false

	return func() (Chunk, bool, error) {
		if info.TotalSize >= 0 && offset >= info.TotalSize {
			return Chunk{}, false, nil
		}

		end := offset + chunkSize - 1
		if info.TotalSize >= 0 && end >= info.TotalSize {
			end = info.TotalSize - 1
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.URL, nil)
		if err != nil {
			return Chunk{}, false, fmt.Errorf("build range request: %w", err)
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, end))

		resp, err := c.http.Do(req)
		if err != nil {
			return Chunk{}, false, fmt.Errorf("fetch range %d-%d: %w", offset, end, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			return Chunk{}, false, fmt.Errorf("unexpected status %d for range %d-%d", resp.StatusCode, offset, end)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return Chunk{}, false, fmt.Errorf("read range %d-%d: %w", offset, end, err)
		}
		if len(data) == 0 {
			return Chunk{}, false, nil
		}

		if !sniffed && info.ContentType == "" {
			if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
				info.ContentType = kind.MIME.Value
			}
			sniffed = true
		}

		chunkOffset := offset
		offset += int64(len(data))
		last := info.TotalSize >= 0 && offset >= info.TotalSize
		return Chunk{Data: data, Offset: chunkOffset, Last: last}, true, nil
	}
}

// SanitizeURL redacts user info and query parameters before a URL is
// logged, exactly as sensitive download URLs were redacted before logging.
func SanitizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.User != nil {
		u.User = url.User("REDACTED")
	}
	if u.RawQuery != "" {
		u.RawQuery = "REDACTED"
	}
	return u.String()
}

// privateIPBlocks enumerates the ranges a chunk fetch refuses to dial into
// unless explicitly allowed, the same loopback/RFC1918/link-local set the
// original safe dialer blocked.
var privateIPBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Errorf("parse error on %q: %v", cidr, err))
		}
		privateIPBlocks = append(privateIPBlocks, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

func safeDialContext(dialer *net.Dialer, allowPrivate bool) func(ctx context.Context, network, addr string) (net.Conn, error) {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}

		var safeIPs []string
		for _, ip := range ips {
			if allowPrivate || !isPrivateIP(ip.IP) {
				safeIPs = append(safeIPs, ip.IP.String())
			}
		}
		if len(safeIPs) == 0 {
			return nil, fmt.Errorf("blocked access to private IP for host %s", host)
		}

		var firstErr error
		for _, ip := range safeIPs {
			conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, firstErr
	}
}
