package camera

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// IPCameraConfig points the device adapter at the station's cameras.
// Each facing mode maps to one HTTP snapshot endpoint; torch control is
// an optional endpoint on the rear camera.
type IPCameraConfig struct {
	RearSnapshotURL  string
	FrontSnapshotURL string
	TorchControlURL  string
}

// IPCameraDevice acquires tracks from HTTP snapshot cameras.
type IPCameraDevice struct {
	config     IPCameraConfig
	httpClient *http.Client
}

func NewIPCameraDevice(config IPCameraConfig) *IPCameraDevice {
	return &IPCameraDevice{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (d *IPCameraDevice) OpenTrack(ctx context.Context, facing FacingMode) (Track, error) {
	snapshotURL := d.config.RearSnapshotURL
	torchURL := d.config.TorchControlURL
	if facing == FacingUser {
		snapshotURL = d.config.FrontSnapshotURL
		torchURL = ""
	}

	if snapshotURL == "" {
		return nil, fmt.Errorf("no %s camera configured", facing)
	}

	track := &ipTrack{
		snapshotURL: snapshotURL,
		torchURL:    torchURL,
		client:      d.httpClient,
		ready:       make(chan struct{}),
		stopCh:      make(chan struct{}),
	}

	// One probe frame up front: an unreachable camera fails acquisition
	// instead of surfacing later as a capture error.
	if _, err := track.fetchFrame(ctx); err != nil {
		return nil, fmt.Errorf("camera %s unreachable: %w", facing, err)
	}

	return track, nil
}

type ipTrack struct {
	snapshotURL string
	torchURL    string
	client      *http.Client

	ready     chan struct{}
	readyOnce sync.Once
	stopCh    chan struct{}
	stopOnce  sync.Once
}

func (t *ipTrack) ReadFrame(ctx context.Context) (image.Image, error) {
	select {
	case <-t.stopCh:
		return nil, fmt.Errorf("track stopped")
	default:
	}

	return t.fetchFrame(ctx)
}

func (t *ipTrack) fetchFrame(ctx context.Context) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", t.snapshotURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	frame, err := jpeg.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	t.readyOnce.Do(func() { close(t.ready) })
	return frame, nil
}

func (t *ipTrack) Ready() <-chan struct{} {
	return t.ready
}

func (t *ipTrack) Capabilities() Capabilities {
	return Capabilities{Torch: t.torchURL != ""}
}

func (t *ipTrack) SetTorch(on bool) error {
	if t.torchURL == "" {
		return ErrTorchUnsupported
	}

	state := "off"
	if on {
		state = "on"
	}

	u, err := url.Parse(t.torchURL)
	if err != nil {
		return fmt.Errorf("invalid torch URL: %w", err)
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()

	resp, err := t.client.Post(u.String(), "text/plain", nil)
	if err != nil {
		return fmt.Errorf("failed to set torch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("torch control returned status %d", resp.StatusCode)
	}
	return nil
}

func (t *ipTrack) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}
