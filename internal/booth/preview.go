package booth

import (
	"fmt"
	"image"
	"sync"

	"photokiosk/internal/camera"
)

// Preview is the render target the live camera stream is attached to.
type Preview struct {
	mu     sync.RWMutex
	stream camera.Stream
	dims   camera.Dimensions
}

func (p *Preview) SetSource(s camera.Stream) {
	p.mu.Lock()
	p.stream = s
	p.dims = camera.Dimensions{}
	p.mu.Unlock()
}

func (p *Preview) SetAspectRatio(d camera.Dimensions) {
	p.mu.Lock()
	p.dims = d
	p.mu.Unlock()
}

func (p *Preview) Dimensions() camera.Dimensions {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dims
}

func (p *Preview) Snapshot() (image.Image, error) {
	p.mu.RLock()
	s := p.stream
	p.mu.RUnlock()
	if s == nil {
		return nil, fmt.Errorf("no stream attached: %w", camera.ErrDeviceUnavailable)
	}
	return s.Snapshot()
}
