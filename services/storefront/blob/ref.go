package blob

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dailykart/dailykart/pkg/telemetry"
)

// MaxFetchSize bounds how much of a remote image Bytes will read.
const MaxFetchSize = 10 << 20

var ErrEmptyRef = errors.New("blob reference is empty")

// HTTPClient is used to resolve URL references.
var HTTPClient = telemetry.NewHTTPClient(15 * time.Second)

// Ref is an opaque handle to image data. It either points at a remote URL or
// carries the bytes inline; both forms serialize to a single URL string.
type Ref struct {
	url         string
	data        []byte
	contentType string
}

// FromURL references data served at u.
func FromURL(u string) Ref {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "data:") {
		if r, err := parseDataURL(u); err == nil {
			return r
		}
	}
	return Ref{url: u}
}

// FromBytes wraps data held in memory.
func FromBytes(data []byte, contentType string) Ref {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Ref{data: cp, contentType: contentType}
}

func (r Ref) IsZero() bool {
	return r.url == "" && len(r.data) == 0
}

// IsInline reports whether the bytes are held by the reference itself.
func (r Ref) IsInline() bool {
	return r.url == "" && len(r.data) > 0
}

// ContentType is known only for inline references.
func (r Ref) ContentType() string {
	return r.contentType
}

// DirectURL returns a URL a browser can fetch: the remote URL, or a data URL
// for inline bytes.
func (r Ref) DirectURL() string {
	if r.url != "" || len(r.data) == 0 {
		return r.url
	}
	ct := r.contentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(r.data)
}

// Bytes returns the referenced data, fetching it when the reference is a URL.
func (r Ref) Bytes(ctx context.Context) ([]byte, error) {
	if r.IsZero() {
		return nil, ErrEmptyRef
	}
	if r.url == "" {
		cp := make([]byte, len(r.data))
		copy(cp, r.data)
		return cp, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build blob request: %w", err)
	}
	resp, err := HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch blob: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch blob: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if len(data) > MaxFetchSize {
		return nil, fmt.Errorf("blob exceeds %d bytes", MaxFetchSize)
	}
	return data, nil
}

func (r Ref) String() string {
	if r.IsInline() {
		return fmt.Sprintf("inline(%s, %d bytes)", r.contentType, len(r.data))
	}
	return r.url
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.DirectURL())
}

func (r *Ref) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("blob reference must be a string: %w", err)
	}
	*r = FromURL(s)
	return nil
}

func parseDataURL(u string) (Ref, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return Ref{}, errors.New("malformed data URL")
	}
	ct, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return Ref{}, errors.New("only base64 data URLs are supported")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Ref{}, fmt.Errorf("decode data URL: %w", err)
	}
	return Ref{data: data, contentType: ct}, nil
}
