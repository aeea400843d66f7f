package flvsample

// BuildAudioTagHeader encodes the FLV AudioTagHeader for AAC: format
// AAC in the upper nibble, sample-rate/size/channel bits fixed at the
// conventional "don't care for AAC" values, followed by the
// AACPacketType byte.
func BuildAudioTagHeader(packetType byte) []byte {
	// soundFormat(4)=AAC, soundRate(2)=3 (44kHz, ignored by AAC decoders),
	// soundSize(1)=1 (16-bit), soundType(1)=1 (stereo) -> 0xAF
	return []byte{AudioFormatAAC<<4 | 0x0F, packetType}
}

// BuildAACSequenceHeader wraps an AudioSpecificConfig (already produced
// by the encoder/out-of-band negotiation) in the AudioTagHeader AAC
// sequence header layout: `AF 00` followed by the config bytes.
func BuildAACSequenceHeader(audioSpecificConfig []byte) []byte {
	hdr := BuildAudioTagHeader(AACPacketTypeSequenceHeader)
	out := make([]byte, 0, len(hdr)+len(audioSpecificConfig))
	out = append(out, hdr...)
	out = append(out, audioSpecificConfig...)
	return out
}

// BuildAACRawFrame wraps one AAC access unit (already stripped of any
// ADTS header by the caller) in the AudioTagHeader raw-frame layout.
func BuildAACRawFrame(accessUnit []byte) []byte {
	hdr := BuildAudioTagHeader(AACPacketTypeRaw)
	out := make([]byte, 0, len(hdr)+len(accessUnit))
	out = append(out, hdr...)
	out = append(out, accessUnit...)
	return out
}
