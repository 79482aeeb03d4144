package compositor

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// FrameLoader fetches a frame's overlay image.
type FrameLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// HTTPLoader loads http(s) URLs over the network and anything else as a
// file under Dir. With an empty Dir only http(s) refs load.
type HTTPLoader struct {
	Client *http.Client
	Dir    string
}

func NewHTTPLoader(dir string) *HTTPLoader {
	return &HTTPLoader{Client: http.DefaultClient, Dir: dir}
}

func (l *HTTPLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	const op = "compositor.HTTPLoader.Load"

	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch u.Scheme {
	case "http", "https":
		return l.fetch(ctx, ref)
	case "file":
		return l.open(u.Path)
	case "":
		return l.open(ref)
	default:
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}
}

func (l *HTTPLoader) fetch(ctx context.Context, ref string) (image.Image, error) {
	const op = "compositor.HTTPLoader.fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s returned %d", op, ref, resp.StatusCode)
	}
	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}

func (l *HTTPLoader) open(path string) (image.Image, error) {
	const op = "compositor.HTTPLoader.open"

	if l.Dir == "" {
		return nil, fmt.Errorf("%s: no frames directory for %q", op, path)
	}
	clean := filepath.Clean("/" + strings.TrimPrefix(path, "/"))
	img, err := imaging.Open(filepath.Join(l.Dir, clean))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return img, nil
}
