// Package rtmpcast publishes a live audio/video stream to an RTMP
// server. It implements the wire handshake, the chunk protocol engine,
// the NetConnection/NetStream command sequence for publishing, a
// congestion-aware send pipeline ("gamer mode"), and FLV-wrapped
// AVC/AAC frame shaping.
//
// The package owns no socket; callers supply one satisfying the Socket
// interface and drive its event loop externally (see Session).
package rtmpcast
