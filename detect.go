package aacenc

// DetectAudioCodec detects the codec of an encoded audio buffer from its
// first bytes. Only ADTS-framed AAC is recognised; anything else, MP3 frames
// included, reports AudioCodecUnknown.
func DetectAudioCodec(data []byte) AudioCodec {
	if IsADTS(data) {
		return AudioCodecAAC
	}
	return AudioCodecUnknown
}

// IsADTS reports whether data starts with an ADTS header: a 0xFFF syncword
// followed by layer 0. MP3 frames share the syncword but carry layer 1-3.
func IsADTS(data []byte) bool {
	if len(data) < ADTSHeaderSize {
		return false
	}
	if data[0] != 0xff || data[1]&0xf0 != 0xf0 {
		return false
	}
	return (data[1]>>1)&0x03 == 0
}
