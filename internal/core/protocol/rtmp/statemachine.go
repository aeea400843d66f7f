package rtmp

// ConnectionState enumerates the phases a publish session moves through,
// strictly forward except for the terminal Disconnecting/Disconnected
// pair which any state can fall back to.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateVersionSent
	StateVersionReceived
	StateAckSent
	StateInitialized
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateVersionSent:
		return "VersionSent"
	case StateVersionReceived:
		return "VersionReceived"
	case StateAckSent:
		return "AckSent"
	case StateInitialized:
		return "Initialized"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// FlowControl tracks the chunk-size and window-acknowledgement
// negotiation in both directions, plus the peer-bandwidth limit type
// needed to interpret a later SetPeerBandwidth correctly.
type FlowControl struct {
	InMaxChunk            uint32
	OutMaxChunk           uint32
	InAckWindow           uint32
	OutAckWindow          uint32
	InLimitType           LimitType
	InBytesSinceAck       uint32
	OutBytesSinceAck      uint32
	InBytesSinceHandshake uint64
}

// NewFlowControl returns flow-control state seeded with the protocol
// defaults assumed before either side negotiates otherwise.
func NewFlowControl() *FlowControl {
	return &FlowControl{
		InMaxChunk:   DefaultChunkSize,
		OutMaxChunk:  DefaultChunkSize,
		InAckWindow:  DefaultWindowAckSize,
		OutAckWindow: DefaultWindowAckSize,
		InLimitType:  LimitTypeDynamic,
	}
}

// ApplyPeerBandwidth folds a received SetPeerBandwidth message into the
// outbound ack window, honoring the Hard/Soft/Dynamic semantics of
// spec.md §4.5. An unrecognized limit type byte is treated as Dynamic,
// matching the reference client's tolerant handling rather than
// rejecting the message.
func (f *FlowControl) ApplyPeerBandwidth(window uint32, limitType LimitType) {
	switch limitType {
	case LimitTypeHard:
		f.OutAckWindow = window
		f.InLimitType = LimitTypeHard
	case LimitTypeSoft:
		if window < f.OutAckWindow {
			f.OutAckWindow = window
		}
		f.InLimitType = LimitTypeSoft
	default: // Dynamic, or any unrecognized byte
		if f.InLimitType == LimitTypeHard {
			f.OutAckWindow = window
		}
		f.InLimitType = LimitTypeDynamic
	}
}

// RecordInboundBytes accounts n bytes of chunk (header+payload) just
// read, and reports whether an Ack message is now due.
func (f *FlowControl) RecordInboundBytes(n uint32) (ackDue bool) {
	f.InBytesSinceHandshake += uint64(n)
	f.InBytesSinceAck += n
	if f.InAckWindow > 0 && f.InBytesSinceAck >= f.InAckWindow {
		f.InBytesSinceAck = 0
		return true
	}
	return false
}

// TransactionAllocator hands out increasing AMF0 command transaction ids
// per message stream; each stream's counter begins at 1 on first use, 0
// being reserved.
type TransactionAllocator struct {
	counters map[uint32]uint32
}

// NewTransactionAllocator returns an empty allocator.
func NewTransactionAllocator() *TransactionAllocator {
	return &TransactionAllocator{counters: make(map[uint32]uint32)}
}

// Next returns the next transaction id for msgStreamID.
func (a *TransactionAllocator) Next(msgStreamID uint32) uint32 {
	next := a.counters[msgStreamID] + 1
	a.counters[msgStreamID] = next
	return next
}
