// Package sendpipe implements the three-layer outbound buffer described
// in spec.md §4.6: a reference-counted force-buffer scope that coalesces
// bursts into one socket write, a primary internal buffer that tracks OS
// send-buffer free space, and an opt-in "gamer" buffer that releases
// data on a tick at a computed rate, with a saturation-mode fallback to
// Nagle when the kernel buffer is chronically full.
//
// The pipeline is single-threaded cooperative, per spec.md §5: every
// method here must be called from the one event-loop context driving
// the owning Session, never from a second goroutine.
package sendpipe

import (
	"errors"
	"log"
)

// ErrGamerBufferFull is returned by Write when gamer mode is enabled,
// a buffer cap was set via SetMaxBufferBytes, and queuing data would
// exceed it.
var ErrGamerBufferFull = errors.New("sendpipe: gamer buffer is full")

// Socket is the subset of the transport contract the pipeline needs.
// The root package's Socket interface satisfies this structurally.
type Socket interface {
	Write(p []byte) (int, error)
	SendBufferSize() (int, error)
	SetSendBufferSize(bytes int) error
	BytesToWrite() int
	SetNoDelay(enabled bool) error
}

// DefaultReleaseMultiplier is the documented gamer-buffer release
// constant; the valid interoperable range is 1.2-1.5.
const DefaultReleaseMultiplier = 1.3

// DefaultExitSatModeTicks is how many ticks of headroom must pass after
// the last saturation event before gamer throttling resumes.
const DefaultExitSatModeTicks = 10 * 20 // 10s at a 20Hz tick, adjusted via SetExitSatModeTime

// Pipeline is the write path sitting between a Publisher/Session and a
// Socket.
type Pipeline struct {
	socket Socket
	logger *log.Logger

	forceBufferDepth int
	internal         []byte

	gamerEnabled        bool
	gamerBuffer         []byte
	avgUploadBps        float64
	tickHz              float64
	releaseMultiplier   float64
	maxGamerBufferBytes int

	saturation        bool
	ticksSinceSatExit int
	exitSatModeTicks  int

	onDataRequest func(freeBytes int)
}

// New returns a Pipeline writing to socket.
func New(socket Socket, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		socket:            socket,
		logger:            logger,
		releaseMultiplier: DefaultReleaseMultiplier,
		exitSatModeTicks:  DefaultExitSatModeTicks,
	}
}

// SetGamerModeEnabled turns the gamer buffer on or off. Per spec.md's
// documented precondition, callers must only change this while no
// writes are in flight (i.e. between sessions).
func (p *Pipeline) SetGamerModeEnabled(enabled bool) {
	p.gamerEnabled = enabled
}

// SetTickFrequency sets the gamer buffer's tick rate in Hz, used to
// convert the average upload rate into a per-tick release budget.
func (p *Pipeline) SetTickFrequency(hz float64) {
	p.tickHz = hz
}

// SetAverageUploadBytesPerSec sets the measured (or configured) uplink
// budget the gamer buffer paces against.
func (p *Pipeline) SetAverageUploadBytesPerSec(bps float64) {
	p.avgUploadBps = bps
}

// SetExitSatModeTicks sets how many ticks must pass after the last
// saturation event before gamer throttling resumes.
func (p *Pipeline) SetExitSatModeTicks(ticks int) {
	p.exitSatModeTicks = ticks
}

// SetReleaseMultiplier overrides the gamer buffer's per-tick release
// headroom; the interoperable range is 1.2-1.5.
func (p *Pipeline) SetReleaseMultiplier(multiplier float64) {
	p.releaseMultiplier = multiplier
}

// SetMaxBufferBytes bounds how much data the gamer buffer accumulates
// before Write starts returning ErrGamerBufferFull instead of queuing
// more, guarding against an unbounded backlog when the producer
// outruns the configured upload rate for too long.
func (p *Pipeline) SetMaxBufferBytes(n int) {
	p.maxGamerBufferBytes = n
}

// OnDataRequest registers the callback invoked when the internal buffer
// drains to empty after a write callback fully consumes it, carrying
// the best-known OS send-buffer free space.
func (p *Pipeline) OnDataRequest(fn func(freeBytes int)) {
	p.onDataRequest = fn
}

// BeginForceBuffer increments the force-buffer reference count. While
// positive, Write only accumulates into the internal buffer.
func (p *Pipeline) BeginForceBuffer() {
	p.forceBufferDepth++
}

// EndForceBuffer decrements the force-buffer reference count; at zero,
// the internal buffer is flushed to the OS send buffer.
func (p *Pipeline) EndForceBuffer() error {
	if p.forceBufferDepth > 0 {
		p.forceBufferDepth--
	}
	if p.forceBufferDepth == 0 {
		return p.flushInternal()
	}
	return nil
}

// WillWriteBuffer reports whether a Write call right now would be
// buffered rather than handed straight to the OS (force-buffer active,
// gamer mode active, or bytes already queued ahead of it).
func (p *Pipeline) WillWriteBuffer() bool {
	return p.forceBufferDepth > 0 || (p.gamerEnabled && !p.saturation) || len(p.internal) > 0
}

// Write queues p for output. Depending on pipeline state it lands in
// the internal buffer (force-buffer active, or bytes already queued)
// or the gamer buffer (gamer mode active and not saturated), or is
// written straight to the socket.
func (p *Pipeline) Write(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if p.forceBufferDepth > 0 {
		p.internal = append(p.internal, data...)
		return nil
	}
	if p.gamerEnabled && !p.saturation {
		if p.maxGamerBufferBytes > 0 && len(p.gamerBuffer)+len(data) > p.maxGamerBufferBytes {
			return ErrGamerBufferFull
		}
		p.gamerBuffer = append(p.gamerBuffer, data...)
		return nil
	}
	if len(p.internal) > 0 {
		p.internal = append(p.internal, data...)
		return p.flushInternal()
	}
	return p.writeDirect(data)
}

// writeDirect attempts to hand data straight to the socket, bounded by
// OS send-buffer free space, queuing any remainder in the internal
// buffer and entering saturation mode if the socket could not accept
// everything that fit in its free space.
func (p *Pipeline) writeDirect(data []byte) error {
	free, err := p.freeSendBufferSpace()
	if err != nil {
		return err
	}

	toSend := data
	if len(toSend) > free {
		toSend = toSend[:free]
	}

	var n int
	if len(toSend) > 0 {
		n, err = p.socket.Write(toSend)
		if err != nil {
			return err
		}
	}

	remainder := data[n:]
	if len(remainder) > 0 {
		if n < len(toSend) {
			p.enterSaturationMode()
		}
		p.internal = append(p.internal, remainder...)
		return nil
	}

	if len(p.internal) == 0 && p.onDataRequest != nil {
		newFree, _ := p.freeSendBufferSpace()
		p.onDataRequest(newFree)
	}
	return nil
}

// flushInternal drains as much of the internal buffer as the OS send
// buffer currently has room for.
func (p *Pipeline) flushInternal() error {
	if len(p.internal) == 0 {
		return nil
	}
	free, err := p.freeSendBufferSpace()
	if err != nil {
		return err
	}
	if free == 0 {
		return nil
	}

	toSend := p.internal
	if len(toSend) > free {
		toSend = toSend[:free]
	}
	n, err := p.socket.Write(toSend)
	if err != nil {
		return err
	}
	if n < len(toSend) {
		p.enterSaturationMode()
	}
	p.internal = p.internal[n:]

	if len(p.internal) == 0 && p.onDataRequest != nil {
		newFree, _ := p.freeSendBufferSpace()
		p.onDataRequest(newFree)
	}
	return nil
}

func (p *Pipeline) freeSendBufferSpace() (int, error) {
	total, err := p.socket.SendBufferSize()
	if err != nil {
		return 0, err
	}
	free := total - p.socket.BytesToWrite()
	if free < 0 {
		free = 0
	}
	return free, nil
}

// Tick drains the gamer buffer at the configured rate. missedTicks is
// the number of ticks the host failed to call back in time for,
// widening this tick's release budget.
func (p *Pipeline) Tick(missedTicks int) error {
	if p.saturation {
		p.ticksSinceSatExit++
		if p.ticksSinceSatExit >= p.exitSatModeTicks {
			p.exitSaturationMode()
		}
		return p.flushInternal()
	}

	if !p.gamerEnabled || len(p.gamerBuffer) == 0 {
		return p.flushInternal()
	}

	budget := p.tickReleaseBudget(missedTicks)
	toRelease := p.gamerBuffer
	if len(toRelease) > budget {
		toRelease = toRelease[:budget]
	}
	p.gamerBuffer = p.gamerBuffer[len(toRelease):]

	if len(toRelease) > 0 {
		p.internal = append(p.internal, toRelease...)
	}
	return p.flushInternal()
}

// tickReleaseBudget computes (avg_upload_bytes_per_sec / tick_hz) *
// (1 + missed_ticks) * releaseMultiplier, per spec.md §4.6.
func (p *Pipeline) tickReleaseBudget(missedTicks int) int {
	if p.tickHz <= 0 {
		return len(p.gamerBuffer)
	}
	perTick := p.avgUploadBps / p.tickHz
	budget := perTick * float64(1+missedTicks) * p.releaseMultiplier
	if budget < 0 {
		return 0
	}
	return int(budget)
}

func (p *Pipeline) enterSaturationMode() {
	p.ticksSinceSatExit = 0
	if p.saturation {
		return
	}
	p.saturation = true
	if err := p.socket.SetNoDelay(false); err != nil {
		p.logger.Printf("sendpipe: re-enabling Nagle on saturation entry failed: %v", err)
	}
	if len(p.gamerBuffer) > 0 {
		p.internal = append(p.internal, p.gamerBuffer...)
		p.gamerBuffer = nil
	}
}

func (p *Pipeline) exitSaturationMode() {
	p.saturation = false
	if err := p.socket.SetNoDelay(true); err != nil {
		p.logger.Printf("sendpipe: disabling Nagle on saturation exit failed: %v", err)
	}
}

// InSaturationMode reports whether the pipeline is currently in the
// Nagle fallback.
func (p *Pipeline) InSaturationMode() bool {
	return p.saturation
}

// QueuedBytes returns bytes sitting in the internal and gamer buffers,
// not yet handed to the OS.
func (p *Pipeline) QueuedBytes() int {
	return len(p.internal) + len(p.gamerBuffer)
}
