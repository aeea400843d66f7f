// Package flvsample shapes already-encoded H.264 NAL units and AAC
// access units into the FLV audio/video tag bodies an RTMP Publisher
// sends as AudioData/VideoData messages. It does no encoding itself.
package flvsample

// FLV audio format and AAC packet type constants (FLV AudioTagHeader:
// the sound format is byte 0's upper nibble, the AAC packet type is
// byte 1).
const (
	AudioFormatAAC = 10

	AACPacketTypeSequenceHeader = 0
	AACPacketTypeRaw            = 1
)

// FLV video codec, frame type and AVC packet type constants (FLV
// VideoTagHeader, byte 0's nibbles and byte 1).
const (
	VideoCodecAVC = 7

	VideoFrameKeyFrame   = 1
	VideoFrameInterFrame = 2

	AVCPacketTypeSequenceHeader = 0
	AVCPacketTypeNALU           = 1
	AVCPacketTypeEndOfSequence  = 2
)

// NALLengthSize is the fixed length-prefix size this library always
// advertises in the AVCDecoderConfigurationRecord (lengthSizeMinusOne = 3).
const NALLengthSize = 4
