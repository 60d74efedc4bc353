package camera

import (
	"context"
	"image"
)

// FacingMode selects which physical camera a track targets.
type FacingMode string

const (
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

func (f FacingMode) Flipped() FacingMode {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Capabilities describes what the active track's hardware supports.
type Capabilities struct {
	Torch bool
}

// Track is one live video stream from a device camera. A track is owned
// exclusively by the session that opened it and must be stopped on every
// path out of the live state.
type Track interface {
	// ReadFrame blocks until the next frame is available.
	ReadFrame(ctx context.Context) (image.Image, error)

	// Ready is closed once the track has reported its metadata and
	// frames may be read.
	Ready() <-chan struct{}

	Capabilities() Capabilities

	// SetTorch flips the device torch. Only meaningful when
	// Capabilities().Torch is true.
	SetTorch(on bool) error

	// Stop releases the underlying device resources. Safe to call more
	// than once.
	Stop()
}

// Device hands out tracks for a requested facing mode.
type Device interface {
	OpenTrack(ctx context.Context, facing FacingMode) (Track, error)
}
