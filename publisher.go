package rtmpcast

import (
	"sync"

	"rtmpcast/internal/core/protocol/amf0"
	"rtmpcast/internal/core/protocol/rtmp"
	"rtmpcast/internal/flvsample"
)

// Publisher wraps one RTMP publish stream: it shapes AVC/AAC frames
// into FLV-wrapped payloads and drives the create/publish/delete
// stream command sequence on its Session. A Publisher becomes invalid
// the instant its Session disconnects; calling any method after that
// returns ErrPublisherInvalidated rather than touching a stale stream.
type Publisher struct {
	mu sync.Mutex

	session *Session
	ready   bool
	invalid bool

	onReady       func()
	onDataRequest func(freeBytes int)
}

// NewPublisher returns an unattached Publisher. Call
// Session.AttachPublisher to bind it before BeginPublishing.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// OnReady registers the callback fired the first time the server's
// onStatus confirms NetStream.Publish.Start.
func (p *Publisher) OnReady(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReady = fn
}

// OnDataRequest registers the callback fired when the send pipeline's
// internal buffer drains to empty, carrying the best-known OS
// send-buffer free space — the backpressure signal a frame producer
// should watch before pushing more data.
func (p *Publisher) OnDataRequest(fn func(freeBytes int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDataRequest = fn
	if p.session != nil {
		p.session.pipeline.OnDataRequest(fn)
	}
}

// IsReady reports whether the server has confirmed the publish.
func (p *Publisher) IsReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// BeginPublishing triggers the create-stream command sequence for
// streamName.
func (p *Publisher) BeginPublishing(streamName string) error {
	p.mu.Lock()
	session := p.session
	invalid := p.invalid
	p.mu.Unlock()
	if invalid || session == nil {
		return ErrPublisherInvalidated
	}
	return session.CreatePublishStream(streamName)
}

// FinishPublishing runs the delete-stream sequence.
func (p *Publisher) FinishPublishing() error {
	p.mu.Lock()
	session := p.session
	invalid := p.invalid
	p.mu.Unlock()
	if invalid || session == nil {
		return ErrPublisherInvalidated
	}
	return session.DeletePublishStream()
}

// WriteDataFrame emits `@setDataFrame("onMetaData", metadata)` as an
// AMF0 data message.
func (p *Publisher) WriteDataFrame(metadata *amf0.Object) error {
	session, streamID, err := p.activeStream()
	if err != nil {
		return err
	}
	body, err := rtmp.BuildSetDataFrame(metadata)
	if err != nil {
		return err
	}
	return session.writeMessage(rtmp.ChunkStreamMedia, rtmp.MessageTypeDataAMF0, 0, streamID, body)
}

// WriteAVCConfigRecord emits the AVCDecoderConfigurationRecord built
// from sps/pps as a VideoData sequence-header message.
func (p *Publisher) WriteAVCConfigRecord(sps, pps []byte) error {
	session, streamID, err := p.activeStream()
	if err != nil {
		return err
	}
	record, err := flvsample.BuildAVCDecoderConfigurationRecord(sps, pps)
	if err != nil {
		return err
	}
	hdr := flvsample.BuildVideoTagHeader(flvsample.VideoFrameKeyFrame, flvsample.AVCPacketTypeSequenceHeader, 0)
	payload := append(hdr, record...)
	return session.writeMessage(rtmp.ChunkStreamMedia, rtmp.MessageTypeVideo, 0, streamID, payload)
}

// WriteAACSequenceHeader emits the FLV AudioTagHeader AAC sequence
// header wrapping oob (the AudioSpecificConfig).
func (p *Publisher) WriteAACSequenceHeader(oob []byte) error {
	session, streamID, err := p.activeStream()
	if err != nil {
		return err
	}
	payload := flvsample.BuildAACSequenceHeader(oob)
	return session.writeMessage(rtmp.ChunkStreamMedia, rtmp.MessageTypeAudio, 0, streamID, payload)
}

// WriteVideoFrame emits one video sample: header is the 5-byte FLV
// VideoTagHeader (frame type + codec in byte 0, AVC packet type in
// byte 1, 3-byte composition time), nals are NAL units with or without
// a leading Annex-B startcode. Each is stripped of its startcode and
// re-framed with a 4-byte length prefix; a length prefix already present
// is not recognized and stays inside the NAL body.
func (p *Publisher) WriteVideoFrame(timestamp uint32, header []byte, nals [][]byte) error {
	session, streamID, err := p.activeStream()
	if err != nil {
		return err
	}
	body := flvsample.FrameNALUs(nals)
	payload := make([]byte, 0, len(header)+len(body))
	payload = append(payload, header...)
	payload = append(payload, body...)

	session.mu.Lock()
	session.lastPublishTS = timestamp
	session.mu.Unlock()

	return session.writeMessage(rtmp.ChunkStreamMedia, rtmp.MessageTypeVideo, timestamp, streamID, payload)
}

// WriteAudioFrame emits one audio sample: header+data dispatched
// verbatim as an AudioData message.
func (p *Publisher) WriteAudioFrame(timestamp uint32, header, data []byte) error {
	session, streamID, err := p.activeStream()
	if err != nil {
		return err
	}
	payload := make([]byte, 0, len(header)+len(data))
	payload = append(payload, header...)
	payload = append(payload, data...)

	session.mu.Lock()
	session.lastPublishTS = timestamp
	session.mu.Unlock()

	return session.writeMessage(rtmp.ChunkStreamMedia, rtmp.MessageTypeAudio, timestamp, streamID, payload)
}

// BeginForceBuffer/EndForceBuffer let a caller coalesce several of the
// Write* calls above into a single socket write, same as the session's
// own command bursts.
func (p *Publisher) BeginForceBuffer() error {
	session, _, err := p.activeStream()
	if err != nil {
		return err
	}
	session.pipeline.BeginForceBuffer()
	return nil
}

func (p *Publisher) EndForceBuffer() error {
	session, _, err := p.activeStream()
	if err != nil {
		return err
	}
	return session.pipeline.EndForceBuffer()
}

// WillWriteBuffer reports whether the next write would be buffered
// rather than handed straight to the OS.
func (p *Publisher) WillWriteBuffer() (bool, error) {
	session, _, err := p.activeStream()
	if err != nil {
		return false, err
	}
	return session.pipeline.WillWriteBuffer(), nil
}

func (p *Publisher) activeStream() (*Session, uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.invalid || p.session == nil {
		return nil, 0, ErrPublisherInvalidated
	}
	p.session.mu.Lock()
	streamID := p.session.publishStreamID
	p.session.mu.Unlock()
	return p.session, streamID, nil
}

// notifyReady is called by Session once onStatus confirms the publish.
func (p *Publisher) notifyReady() {
	p.mu.Lock()
	p.ready = true
	fn := p.onReady
	p.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// invalidate detaches the publisher from its session. Called by Session
// on every disconnect, per spec.md's "publisher lifetime tied to
// session" design note — a weak back-reference plus explicit
// invalidation, not shared ownership.
func (p *Publisher) invalidate() {
	p.mu.Lock()
	p.invalid = true
	p.ready = false
	p.session = nil
	p.mu.Unlock()
}
