package stock

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stockprompt/internal/domain"
)

const maxImageBytes = 20 << 20

// Image is a downloaded source image.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageFetcher downloads the bytes behind an asset image URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (Image, error)
}

// HTTPImageFetcher fetches images over HTTP without retrying; retry policy
// belongs to the caller.
type HTTPImageFetcher struct {
	client *http.Client
}

func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		}
	}
	return &HTTPImageFetcher{client: client}
}

func (f *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (Image, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return Image{}, fmt.Errorf("%w: empty image url", domain.ErrItemFetchFailed)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return Image{}, fmt.Errorf("%w: invalid url: %v", domain.ErrItemFetchFailed, err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", domain.ErrItemFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Image{}, fmt.Errorf("%w: unexpected status %d", domain.ErrItemFetchFailed, resp.StatusCode)
	}
	if resp.ContentLength > maxImageBytes {
		return Image{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrItemFetchFailed, maxImageBytes)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return Image{}, fmt.Errorf("%w: read body: %v", domain.ErrItemFetchFailed, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty body", domain.ErrItemFetchFailed)
	}
	if len(data) > maxImageBytes {
		return Image{}, fmt.Errorf("%w: image exceeds %d bytes", domain.ErrItemFetchFailed, maxImageBytes)
	}

	mime := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported content-type %q", domain.ErrItemFetchFailed, mime)
	}
	return Image{Data: data, MIMEType: mime}, nil
}

var _ ImageFetcher = (*HTTPImageFetcher)(nil)
