package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"leafscan/internal/imaging"
)

type State string

const (
	StateClosed    State = "closed"
	StateOpening   State = "opening"
	StateLive      State = "live"
	StateCapturing State = "capturing"
)

var (
	ErrAlreadyOpen      = errors.New("camera session already open")
	ErrNotOpen          = errors.New("camera session not open")
	ErrNotReady         = errors.New("camera not ready to capture")
	ErrTorchUnsupported = errors.New("torch not supported on this camera")
)

// Session owns at most one live track and drives the
// Closed→Opening→Live→Capturing→Closed state machine. Opening a new
// track is always ordered strictly after releasing the previous one.
type Session struct {
	device Device

	mu             sync.Mutex
	state          State
	facing         FacingMode
	track          Track
	torchSupported bool
	torchOn        bool
	frameSize      image.Point
	lastErr        error

	// gen invalidates async completions from a torn-down acquisition:
	// every open and every teardown bumps it, and a completion whose gen
	// no longer matches releases its track and is otherwise ignored.
	gen int

	cancel context.CancelFunc
}

// Status is a snapshot of the session for handlers and templates.
type Status struct {
	State          State      `json:"state"`
	Facing         FacingMode `json:"facing"`
	Loading        bool       `json:"loading"`
	TorchSupported bool       `json:"torch_supported"`
	TorchOn        bool       `json:"torch_on"`
	Error          string     `json:"error,omitempty"`
}

func NewSession(device Device) *Session {
	return &Session{
		device: device,
		state:  StateClosed,
		facing: FacingEnvironment,
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:          s.state,
		Facing:         s.facing,
		Loading:        s.state == StateOpening,
		TorchSupported: s.torchSupported,
		TorchOn:        s.torchOn,
	}
	if s.lastErr != nil {
		st.Error = s.lastErr.Error()
	}
	return st
}

// Start opens the camera with the rear-facing default. Acquisition runs
// asynchronously; the session reports StateOpening until the first frame
// is primed.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateClosed {
		return ErrAlreadyOpen
	}

	s.facing = FacingEnvironment
	s.openLocked()
	return nil
}

// ToggleFacing flips between front and rear. The current track is fully
// stopped before the new acquisition begins.
func (s *Session) ToggleFacing() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrNotOpen
	}

	s.teardownLocked()
	s.facing = s.facing.Flipped()
	s.openLocked()
	return nil
}

// ToggleTorch flips the device torch. Valid only while live on a track
// that reports torch capability.
func (s *Session) ToggleTorch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateLive {
		return ErrNotReady
	}
	if !s.torchSupported {
		return ErrTorchUnsupported
	}

	if err := s.track.SetTorch(!s.torchOn); err != nil {
		return fmt.Errorf("failed to set torch: %w", err)
	}
	s.torchOn = !s.torchOn
	return nil
}

// Capture reads the current frame, mirrors it when front-facing so the
// still matches what was visually framed, encodes it as a data URL and
// closes the session. Rejected until the track has reported usable
// dimensions.
func (s *Session) Capture(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return "", ErrNotOpen
	}
	if s.state != StateLive || s.frameSize == (image.Point{}) {
		s.mu.Unlock()
		return "", ErrNotReady
	}

	s.state = StateCapturing
	track := s.track
	facing := s.facing
	gen := s.gen
	s.mu.Unlock()

	frame, err := track.ReadFrame(ctx)

	s.mu.Lock()
	if gen != s.gen {
		// The session was torn down, and possibly reopened, while the
		// read was in flight. Release only the track this capture was
		// holding and leave the current session untouched.
		s.mu.Unlock()
		track.Stop()
		return "", fmt.Errorf("capture cancelled")
	}
	s.teardownLocked()
	s.state = StateClosed
	s.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("failed to capture frame: %w", err)
	}

	if facing == FacingUser {
		frame = MirrorHorizontal(frame)
	}

	return imaging.EncodeDataURL(frame)
}

// Stop tears the session down. It is the unconditional exit action for
// every path out of Opening/Live and is safe to call in any state.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.state = StateClosed
	s.lastErr = nil
}

// openLocked starts an asynchronous acquisition for the current facing
// mode. Caller holds s.mu and has already released any previous track.
func (s *Session) openLocked() {
	s.state = StateOpening
	s.frameSize = image.Point{}
	s.torchSupported = false
	s.torchOn = false
	s.lastErr = nil

	s.gen++
	gen := s.gen

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	facing := s.facing

	go s.open(ctx, gen, facing)
}

func (s *Session) open(ctx context.Context, gen int, facing FacingMode) {
	track, err := s.device.OpenTrack(ctx, facing)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		if track != nil {
			track.Stop()
		}
		return
	}

	if err != nil {
		log.Printf("[CAMERA] Failed to open %s track: %v", facing, err)
		s.state = StateClosed
		s.lastErr = fmt.Errorf("failed to open camera: %w", err)
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		s.mu.Unlock()
		return
	}

	s.track = track
	s.torchSupported = track.Capabilities().Torch
	s.mu.Unlock()

	// The loading state ends on whichever of two signals fires first: an
	// immediate frame read, or a read retried once the track reports its
	// metadata. Completion is idempotent, the loser is a no-op.
	go s.primeFrame(ctx, gen, track)
	go func() {
		select {
		case <-track.Ready():
			s.primeFrame(ctx, gen, track)
		case <-ctx.Done():
		}
	}()
}

// primeFrame attempts the first frame read that moves the session from
// Opening to Live.
func (s *Session) primeFrame(ctx context.Context, gen int, track Track) {
	frame, err := track.ReadFrame(ctx)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != StateOpening {
		return
	}

	s.frameSize = frame.Bounds().Size()
	s.state = StateLive
	log.Printf("[CAMERA] Live on %s camera, %dx%d", s.facing, s.frameSize.X, s.frameSize.Y)
}

// teardownLocked releases the active track and all device references.
// Caller holds s.mu.
func (s *Session) teardownLocked() {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.track != nil {
		s.track.Stop()
		s.track = nil
	}
	s.torchSupported = false
	s.torchOn = false
	s.frameSize = image.Point{}
}
