package rtmpcast

import (
	"bytes"
	"fmt"
	"log"
	"sync"

	"time"

	"rtmpcast/internal/auth"
	"rtmpcast/internal/core/protocol/rtmp"
	"rtmpcast/internal/sendpipe"
)

// Events is the set of notifications a Session raises as it moves
// through the connect/publish lifecycle, per spec.md §6's Session API.
// Any field left nil is simply not called.
type Events struct {
	OnConnecting     func()
	OnConnected      func()
	OnInitialized    func()
	OnConnectedToApp func()
	OnCreatedStream  func(streamID uint32)
	OnDisconnected   func()
	OnError          func(*Error)
	OnCommand        func(msgStreamID uint32, cmd *rtmp.Command)
}

// Stats is a snapshot of session throughput, surfaced to operators via
// Session.Stats() and the internal/monitor websocket feed.
type Stats struct {
	State           string
	BytesSent       uint64
	BytesReceived   uint64
	QueuedBytes     int
	InSaturation    bool
	AppConnected    bool
	PublishStreamID uint32
}

// Session drives one RTMP connection: the handshake, the
// NetConnection/NetStream command sequence, protocol control message
// handling, and the outbound send pipeline. It is not safe to share a
// Session across goroutines except as documented on ReadLoop.
type Session struct {
	mu sync.Mutex

	socket Socket
	logger *log.Logger

	state ConnectionStateAlias

	target        *Target
	versionString string
	autoConnect   bool

	authSecret  string
	authSubject string
	authTTL     time.Duration

	flow       *rtmp.FlowControl
	txAlloc    *rtmp.TransactionAllocator
	handshake  *rtmp.Handshake
	chunkWrite *rtmp.ChunkWriter
	chunkRead  *rtmp.ChunkReader
	pipeline   *sendpipe.Pipeline

	appConnectTxID    uint32
	appConnected      bool
	createStreamTxID  uint32
	creatingStream    bool
	publishStreamID   uint32
	awaitingPublish   bool
	publishReady      bool
	lastPublishTS     uint32

	bytesSent     uint64
	bytesReceived uint64

	publisher *Publisher
	events    Events
}

// ConnectionStateAlias re-exports rtmp.ConnectionState so callers never
// import the internal protocol package just to read Session.State().
type ConnectionStateAlias = rtmp.ConnectionState

// NewSession returns a Session that will drive socket once Connect is
// called. versionString is sent as flashVer on the connect command.
func NewSession(socket Socket, versionString string) *Session {
	s := &Session{
		socket:        socket,
		logger:        log.New(log.Writer(), "rtmp: ", log.LstdFlags),
		state:         rtmp.StateDisconnected,
		versionString: versionString,
		flow:          rtmp.NewFlowControl(),
		txAlloc:       rtmp.NewTransactionAllocator(),
		handshake:     &rtmp.Handshake{},
		chunkWrite:    rtmp.NewChunkWriter(),
		chunkRead:     rtmp.NewChunkReader(),
	}
	s.pipeline = sendpipe.New(socket, log.New(log.Writer(), "pipeline: ", log.LstdFlags))
	s.chunkWrite.Logger = s.logger
	return s
}

// SetAutoConnectToApp makes Connect proceed straight through the
// connect-to-app command sequence once the handshake finishes.
func (s *Session) SetAutoConnectToApp(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoConnect = enabled
}

// SetAuthSigningKey makes ConnectToApp sign a short-lived JWT for
// subject and attach it as a query parameter on the connect
// tcUrl/swfUrl, for ingest endpoints that gate publish access with a
// bearer token. Leaving secret empty (the default) sends tcUrl/swfUrl
// unmodified.
func (s *Session) SetAuthSigningKey(secret, subject string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authSecret = secret
	s.authSubject = subject
	s.authTTL = ttl
}

// SetEvents registers the notification callbacks for this session.
func (s *Session) SetEvents(ev Events) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = ev
}

// AttachPublisher binds a Publisher to this session. The publisher
// becomes invalid the instant the session disconnects.
func (s *Session) AttachPublisher(p *Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
	p.session = s
	if p.onDataRequest != nil {
		s.pipeline.OnDataRequest(p.onDataRequest)
	}
}

// State returns the current connection state.
func (s *Session) State() ConnectionStateAlias {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stats returns a point-in-time snapshot of session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		State:           s.state.String(),
		BytesSent:       s.bytesSent,
		BytesReceived:   s.bytesReceived,
		QueuedBytes:     s.pipeline.QueuedBytes(),
		InSaturation:    s.pipeline.InSaturationMode(),
		AppConnected:    s.appConnected,
		PublishStreamID: s.publishStreamID,
	}
}

// Connect performs the handshake against target, then (if
// SetAutoConnectToApp(true) was called) immediately connects to the
// app. It blocks on the handshake's reads/writes; callers wanting a
// non-blocking connect should run it on a goroutine.
func (s *Session) Connect(target *Target) error {
	s.mu.Lock()
	s.target = target
	s.state = rtmp.StateConnecting
	s.mu.Unlock()
	s.notifyConnecting()

	if err := s.handshake.Perform(readWriter{s.socket}); err != nil {
		s.fail(KindUnexpectedResponse, err)
		return err
	}

	s.mu.Lock()
	s.state = rtmp.StateInitialized
	autoConnect := s.autoConnect
	s.mu.Unlock()
	s.notifyConnected()
	s.notifyInitialized()

	if autoConnect {
		return s.ConnectToApp()
	}
	return nil
}

// ConnectToApp sends SetChunkSize then the connect command under one
// force-buffer scope, per spec.md §4.5.
func (s *Session) ConnectToApp() error {
	s.pipeline.BeginForceBuffer()
	defer s.pipeline.EndForceBuffer()

	if err := s.writeControl(rtmp.MessageTypeSetChunkSize, rtmp.EncodeSetChunkSize(4096)); err != nil {
		return err
	}
	s.chunkWrite.SetChunkSize(4096)

	s.mu.Lock()
	txID := s.txAlloc.Next(0)
	s.appConnectTxID = txID
	app := s.target.AppName
	if s.target.AppInstance != "" {
		app = app + "/" + s.target.AppInstance
	}
	tcURL := s.target.TcURL()
	flashVer := s.versionString
	authSecret := s.authSecret
	authSubject := s.authSubject
	authTTL := s.authTTL
	s.mu.Unlock()

	if authSecret != "" {
		token, err := auth.SignToken(authSecret, authSubject, authTTL)
		if err != nil {
			return fmt.Errorf("rtmp: sign auth token: %w", err)
		}
		tcURL, err = auth.AttachToURL(tcURL, token)
		if err != nil {
			return fmt.Errorf("rtmp: attach auth token: %w", err)
		}
	}

	body, err := rtmp.BuildConnect(txID, app, tcURL, flashVer, tcURL)
	if err != nil {
		return err
	}
	return s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, body)
}

// CreatePublishStream issues releaseStream/FCPublish/createStream for
// streamName under one force-buffer scope, per spec.md §4.5.
func (s *Session) CreatePublishStream(streamName string) error {
	s.mu.Lock()
	s.target.StreamName = streamName
	s.creatingStream = true
	s.awaitingPublish = true
	s.mu.Unlock()

	s.pipeline.BeginForceBuffer()
	defer s.pipeline.EndForceBuffer()

	releaseTx := s.txAlloc.Next(0)
	releaseBody, err := rtmp.BuildReleaseStream(releaseTx, streamName)
	if err != nil {
		return err
	}
	if err := s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, releaseBody); err != nil {
		return err
	}

	if s.publisher != nil {
		fcTx := s.txAlloc.Next(0)
		fcBody, err := rtmp.BuildFCPublish(fcTx, streamName)
		if err != nil {
			return err
		}
		if err := s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, fcBody); err != nil {
			return err
		}
	}

	createTx := s.txAlloc.Next(0)
	s.mu.Lock()
	s.createStreamTxID = createTx
	s.mu.Unlock()
	createBody, err := rtmp.BuildCreateStream(createTx)
	if err != nil {
		return err
	}
	return s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, createBody)
}

// DeletePublishStream issues FCUnpublish/closeStream/deleteStream, per
// spec.md §4.5. No server acknowledgement is awaited.
func (s *Session) DeletePublishStream() error {
	s.mu.Lock()
	streamName := s.target.StreamName
	streamID := s.publishStreamID
	lastTS := s.lastPublishTS
	s.mu.Unlock()

	s.pipeline.BeginForceBuffer()
	defer s.pipeline.EndForceBuffer()

	if s.publisher != nil {
		tx := s.txAlloc.Next(0)
		body, err := rtmp.BuildFCUnpublish(tx, streamName)
		if err != nil {
			return err
		}
		if err := s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, body); err != nil {
			return err
		}
	}

	closeTx := s.txAlloc.Next(streamID)
	closeBody, err := rtmp.BuildCloseStream(closeTx)
	if err != nil {
		return err
	}
	if err := s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, lastTS, streamID, closeBody); err != nil {
		return err
	}

	deleteTx := s.txAlloc.Next(0)
	deleteBody, err := rtmp.BuildDeleteStream(deleteTx, streamID)
	if err != nil {
		return err
	}
	return s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, 0, deleteBody)
}

// Disconnect tears the session down. A clean disconnect flushes
// buffers before closing; an unclean one aborts the socket immediately.
func (s *Session) Disconnect(clean bool) error {
	s.mu.Lock()
	s.state = rtmp.StateDisconnecting
	s.mu.Unlock()

	var err error
	if clean {
		err = s.socket.Flush()
	} else {
		err = s.socket.Abort()
	}

	s.mu.Lock()
	s.state = rtmp.StateDisconnected
	s.appConnected = false
	s.publishReady = false
	publisher := s.publisher
	s.publisher = nil
	s.mu.Unlock()
	if publisher != nil {
		publisher.invalidate()
	}
	s.notifyDisconnected()
	return err
}

// ReadLoop blocks reading and dispatching messages until the socket
// errors or is closed. Callers run it on its own goroutine; Session's
// other methods remain safe to call concurrently because they only
// touch state under s.mu, and writes go through the pipeline which is
// itself only ever driven from this loop or from the caller's own
// single writer goroutine — same single-writer discipline spec.md §5
// asks of a true single-threaded event loop, adapted to Go's
// goroutine-per-connection idiom.
func (s *Session) ReadLoop() error {
	for {
		before := s.chunkRead.BytesRead()
		msg, err := s.chunkRead.ReadMessage(readWriter{s.socket})
		if err != nil {
			s.fail(KindRemoteHostClosed, err)
			return err
		}
		consumed := uint32(s.chunkRead.BytesRead() - before)

		s.mu.Lock()
		s.bytesReceived += uint64(len(msg.Payload))
		ackDue := s.flow.RecordInboundBytes(consumed)
		ackSeq := uint32(s.flow.InBytesSinceHandshake)
		s.mu.Unlock()

		if ackDue {
			if err := s.writeControl(rtmp.MessageTypeAck, rtmp.EncodeAck(ackSeq)); err != nil {
				s.fail(KindUnexpectedResponse, err)
				return err
			}
		}

		if err := s.handleMessage(msg); err != nil {
			s.fail(KindUnexpectedResponse, err)
			return err
		}
	}
}

func (s *Session) handleMessage(msg *rtmp.Message) error {
	switch msg.Type {
	case rtmp.MessageTypeSetChunkSize:
		size, err := rtmp.DecodeSetChunkSize(msg.Payload)
		if err != nil {
			return err
		}
		s.chunkRead.SetChunkSize(size)
		s.mu.Lock()
		s.flow.InMaxChunk = size
		s.mu.Unlock()

	case rtmp.MessageTypeAbort:
		csID, err := rtmp.DecodeAbort(msg.Payload)
		if err != nil {
			return err
		}
		s.chunkRead.AbortChunkStream(csID)

	case rtmp.MessageTypeAck:
		// Accepted and ignored per spec.md §4.5.

	case rtmp.MessageTypeUserControl:
		return s.handleUserControl(msg.Payload)

	case rtmp.MessageTypeWindowAckSize:
		win, err := rtmp.DecodeWindowAckSize(msg.Payload)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.flow.InAckWindow = win
		s.mu.Unlock()

	case rtmp.MessageTypeSetPeerBandwidth:
		win, limitType, err := rtmp.DecodeSetPeerBandwidth(msg.Payload)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.flow.ApplyPeerBandwidth(win, limitType)
		s.mu.Unlock()

	case rtmp.MessageTypeCommandAMF0:
		return s.handleCommand(msg)

	case rtmp.MessageTypeAudio, rtmp.MessageTypeVideo, rtmp.MessageTypeDataAMF0:
		// Not expected in the publisher role; dropped per spec.md §4.5.

	default:
		// Unknown message type: logged and ignored rather than failing
		// the session, mirroring the tolerant handling of unknown
		// UserControl subtypes.
		s.logger.Printf("ignoring unknown message type %d", msg.Type)
	}
	return nil
}

func (s *Session) handleUserControl(body []byte) error {
	ev, err := rtmp.DecodeUserControl(body)
	if err != nil {
		return err
	}
	switch ev.EventType {
	case rtmp.UserControlPingRequest:
		ts, err := ev.PingTimestamp()
		if err != nil {
			return err
		}
		return s.writeControl(rtmp.MessageTypeUserControl, rtmp.EncodePingResponse(ts))
	case rtmp.UserControlStreamBegin, rtmp.UserControlStreamEOF, rtmp.UserControlStreamDry,
		rtmp.UserControlSetBufferLength, rtmp.UserControlStreamIsRecorded, rtmp.UserControlPingResponse:
		// Accepted, no action required.
	default:
		s.logger.Printf("ignoring unknown user control subtype %d", ev.EventType)
	}
	return nil
}

func (s *Session) handleCommand(msg *rtmp.Message) error {
	cmd, err := rtmp.ParseCommand(msg.Payload)
	if err != nil {
		return err
	}
	s.notifyCommand(msg.MsgStreamID, cmd)

	switch cmd.Name {
	case "_result":
		return s.handleResult(cmd)
	case "_error":
		return s.handleError(cmd)
	case "onStatus":
		return s.handleOnStatus(cmd)
	}
	return nil
}

func (s *Session) handleResult(cmd *rtmp.Command) error {
	s.mu.Lock()
	isAppConnect := cmd.TxID == s.appConnectTxID && !s.appConnected
	isCreateStream := cmd.TxID == s.createStreamTxID && s.creatingStream
	s.mu.Unlock()

	if isAppConnect {
		s.mu.Lock()
		s.appConnected = true
		s.mu.Unlock()
		s.notifyConnectedToApp()
		return nil
	}
	if isCreateStream {
		streamID, ok := cmd.CreatedStreamID()
		if !ok {
			return fmt.Errorf("rtmp: createStream _result missing stream id")
		}
		s.mu.Lock()
		s.publishStreamID = streamID
		s.creatingStream = false
		publisher := s.publisher
		awaiting := s.awaitingPublish
		s.mu.Unlock()
		s.notifyCreatedStream(streamID)

		if publisher != nil && awaiting {
			return s.publishOnCreatedStream(streamID)
		}
	}
	return nil
}

func (s *Session) publishOnCreatedStream(streamID uint32) error {
	s.mu.Lock()
	streamName := s.target.StreamName
	s.mu.Unlock()

	tx := s.txAlloc.Next(streamID)
	body, err := rtmp.BuildPublish(tx, streamName)
	if err != nil {
		return err
	}
	return s.writeMessage(rtmp.ChunkStreamCommand, rtmp.MessageTypeCommandAMF0, 0, streamID, body)
}

func (s *Session) handleError(cmd *rtmp.Command) error {
	s.mu.Lock()
	isAppConnect := cmd.TxID == s.appConnectTxID && !s.appConnected
	isCreateStream := cmd.TxID == s.createStreamTxID && s.creatingStream
	s.mu.Unlock()

	if isAppConnect {
		s.fail(KindRtmpConnectRejected, fmt.Errorf("rtmp: connect rejected"))
		return s.Disconnect(true)
	}
	if isCreateStream {
		s.fail(KindRtmpCreateStreamError, fmt.Errorf("rtmp: createStream failed"))
		return s.Disconnect(true)
	}
	return nil
}

func (s *Session) handleOnStatus(cmd *rtmp.Command) error {
	code, ok := cmd.StatusCode()
	if !ok {
		return nil
	}
	s.mu.Lock()
	already := s.publishReady
	s.mu.Unlock()
	if already {
		return nil
	}
	if code == rtmp.StatusNetStreamPublishStart {
		s.mu.Lock()
		s.publishReady = true
		publisher := s.publisher
		s.mu.Unlock()
		if publisher != nil {
			publisher.notifyReady()
		}
		return nil
	}
	s.fail(KindRtmpPublishRejected, fmt.Errorf("rtmp: publish rejected with status %q", code))
	return s.Disconnect(true)
}

// writeMessage chunks and sends one logical message through the send
// pipeline.
func (s *Session) writeMessage(chunkStreamID uint32, msgType rtmp.MessageType, timestamp uint32, msgStreamID uint32, payload []byte) error {
	var buf bytes.Buffer
	if err := s.chunkWrite.WriteMessage(&buf, chunkStreamID, msgType, timestamp, msgStreamID, payload); err != nil {
		return err
	}
	s.mu.Lock()
	s.bytesSent += uint64(buf.Len())
	s.mu.Unlock()
	return s.pipeline.Write(buf.Bytes())
}

// writeControl sends a fixed-layout protocol control message on the
// control chunk stream, message stream 0.
func (s *Session) writeControl(msgType rtmp.MessageType, body []byte) error {
	return s.writeMessage(rtmp.ChunkStreamControl, msgType, 0, 0, body)
}

func (s *Session) fail(kind Kind, err error) {
	s.notifyError(newError(kind, err))
}

func (s *Session) notifyConnecting() {
	s.mu.Lock()
	fn := s.events.OnConnecting
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) notifyConnected() {
	s.mu.Lock()
	fn := s.events.OnConnected
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) notifyInitialized() {
	s.mu.Lock()
	fn := s.events.OnInitialized
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) notifyConnectedToApp() {
	s.mu.Lock()
	fn := s.events.OnConnectedToApp
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) notifyCreatedStream(streamID uint32) {
	s.mu.Lock()
	fn := s.events.OnCreatedStream
	s.mu.Unlock()
	if fn != nil {
		fn(streamID)
	}
}

func (s *Session) notifyDisconnected() {
	s.mu.Lock()
	fn := s.events.OnDisconnected
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) notifyError(err *Error) {
	s.mu.Lock()
	fn := s.events.OnError
	s.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (s *Session) notifyCommand(msgStreamID uint32, cmd *rtmp.Command) {
	s.mu.Lock()
	fn := s.events.OnCommand
	s.mu.Unlock()
	if fn != nil {
		fn(msgStreamID, cmd)
	}
}

// readWriter adapts Socket's blocking Read and non-blocking-accept
// Write into the io.ReadWriter the handshake and chunk reader expect.
// Writes here bypass the send pipeline deliberately: the handshake
// and raw chunk bytes are not subject to force-buffering or gamer
// throttling.
type readWriter struct {
	Socket
}

// Write loops over the underlying Socket's non-blocking Write until
// every byte is accepted. The handshake and raw chunk bytes need a
// full-write guarantee that bypasses the throttled send pipeline.
func (rw readWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := rw.Socket.Write(p[written:])
		if err != nil {
			return written, err
		}
		if n == 0 {
			return written, fmt.Errorf("rtmpcast: socket accepted 0 bytes")
		}
		written += n
	}
	return written, nil
}
