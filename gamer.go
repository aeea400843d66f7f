package rtmpcast

import (
	"sync"

	"rtmpcast/internal/sendpipe"
)

// ErrGamerBufferFull re-exports sendpipe.ErrGamerBufferFull, returned
// by a Publisher's frame-write methods when gamer mode is enabled, a
// buffer cap was set via SetGamerMaxBufferBytes, and queuing the frame
// would exceed it.
var ErrGamerBufferFull = sendpipe.ErrGamerBufferFull

// gamerMode holds the process-wide flag and tick frequency described in
// spec.md §5's concurrency model: "process-wide state is limited to the
// gamer-mode flag and gamer tick frequency; these must be set only when
// no sessions are active." A Session reads it when EnableGamerMode or
// SetExitSatModeTime is called on it.
var gamerMode = struct {
	mu      sync.Mutex
	enabled bool
	tickHz  float64
}{tickHz: 20}

// SetGamerModeEnabled sets the process-wide gamer mode flag. Per the
// precondition above, call this only while no Session is connected.
func SetGamerModeEnabled(enabled bool) {
	gamerMode.mu.Lock()
	defer gamerMode.mu.Unlock()
	gamerMode.enabled = enabled
}

// SetGamerTickFrequency sets the process-wide tick rate in Hz that the
// host must call Session.GamerTick at while any session has gamer mode
// active.
func SetGamerTickFrequency(hz float64) {
	gamerMode.mu.Lock()
	defer gamerMode.mu.Unlock()
	gamerMode.tickHz = hz
}

func gamerModeSnapshot() (enabled bool, tickHz float64) {
	gamerMode.mu.Lock()
	defer gamerMode.mu.Unlock()
	return gamerMode.enabled, gamerMode.tickHz
}

// SetAverageUploadBytesPerSec sets this session's measured uplink
// budget, the input to the gamer buffer's per-tick release
// computation.
func (s *Session) SetAverageUploadBytesPerSec(bps float64) {
	s.pipeline.SetAverageUploadBytesPerSec(bps)
}

// SetExitSatModeTime sets how many seconds of headroom must pass after
// the last saturation event before gamer throttling resumes; it is
// converted to a tick count using the process-wide tick frequency.
func (s *Session) SetExitSatModeTime(seconds float64) {
	_, tickHz := gamerModeSnapshot()
	if tickHz <= 0 {
		return
	}
	s.pipeline.SetExitSatModeTicks(int(seconds * tickHz))
}

// EnableGamerMode applies the process-wide gamer mode flag and tick
// frequency to this session's send pipeline. Call once, before
// connecting.
func (s *Session) EnableGamerMode() {
	enabled, tickHz := gamerModeSnapshot()
	s.pipeline.SetGamerModeEnabled(enabled)
	s.pipeline.SetTickFrequency(tickHz)
}

// SetGamerReleaseMultiplier overrides the gamer buffer's per-tick
// release headroom (default 1.3; the interoperable range is 1.2-1.5).
func (s *Session) SetGamerReleaseMultiplier(multiplier float64) {
	s.pipeline.SetReleaseMultiplier(multiplier)
}

// SetGamerMaxBufferBytes caps how much data the gamer buffer will
// accumulate before WriteVideoFrame/WriteAudioFrame start returning
// ErrGamerBufferFull, guarding against an unbounded backlog when a
// frame producer outruns the configured upload rate.
func (s *Session) SetGamerMaxBufferBytes(n int) {
	s.pipeline.SetMaxBufferBytes(n)
}

// GamerTick must be called by the host once per tick, at the
// process-wide tick frequency, while this session is connected and
// gamer mode is enabled. numDroppedTicks widens the release budget to
// make up for ticks the host failed to deliver on time.
func (s *Session) GamerTick(numDroppedTicks int) error {
	return s.pipeline.Tick(numDroppedTicks)
}
