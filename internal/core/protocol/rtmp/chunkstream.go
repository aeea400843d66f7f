package rtmp

// ChunkStreamState holds the per-chunk-stream header-compression history
// used to pick the smallest header format on write, and to reconstruct a
// header fmt 3 omits on read. A write-side table and a read-side table
// each hold their own independent set of these; the same chunk stream id
// never shares state between the two directions.
type ChunkStreamState struct {
	Timestamp      uint32 // absolute timestamp last applied to this stream
	TimestampDelta uint32 // delta of the last message
	MsgLen         uint32 // last header's message length
	MsgType        MessageType
	MsgStreamID    uint32
	LenRemaining   uint32 // bytes still expected (read) or not yet sent (write)
	MsgBuffer      []byte // reassembly accumulator; read side only
	HasHistory     bool   // false until this chunk stream has been used once
	HadExtended    bool   // true if the in-progress message's header used the extended timestamp escape
}

// ChunkStreamTable is a lazily-populated map of chunk stream id to its
// ChunkStreamState. The protocol allows ids 2..65599; in practice a
// publish session only ever touches 2, 3 and 4, so a plain map is simpler
// and fast enough — there is no meaningful upper bound to pre-size for.
type ChunkStreamTable struct {
	streams map[uint32]*ChunkStreamState
}

// NewChunkStreamTable returns an empty table.
func NewChunkStreamTable() *ChunkStreamTable {
	return &ChunkStreamTable{streams: make(map[uint32]*ChunkStreamState)}
}

// Get returns the state for csID, creating it on first reference.
func (t *ChunkStreamTable) Get(csID uint32) *ChunkStreamState {
	cs, ok := t.streams[csID]
	if !ok {
		cs = &ChunkStreamState{}
		t.streams[csID] = cs
	}
	return cs
}

// Lookup returns the state for csID without creating it.
func (t *ChunkStreamTable) Lookup(csID uint32) (*ChunkStreamState, bool) {
	cs, ok := t.streams[csID]
	return cs, ok
}

// Delete discards a chunk stream's state entirely (used by Abort, which
// discards a reassembly in progress rather than merely resetting it).
func (t *ChunkStreamTable) Delete(csID uint32) {
	delete(t.streams, csID)
}
