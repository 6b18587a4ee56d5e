// Package aacenc binds the VisualOn AAC encoder (libvo-aacenc) and carries
// its output to files, RTP and RTMP.
//
// Key pieces include:
//   - Encoder: one native encoder session (Encode/Channels/Close)
//   - AACEncoder: the AudioEncoder built on it, plus the provider registry
//   - ADTS and AudioSpecificConfig helpers
//   - Writer: an io.WriteCloser turning PCM into an AAC stream
//   - RFC 3640 RTP packetizer/depacketizer and WebRTC track helpers
//   - AudioEncodePipeline and an RTMP publisher
//
// # Architecture
//
//	Encode: AudioSource -> AudioEncoder -> RTPPacketizer -> RTPWriter
//	                                    \-> FrameSink (RTMP)
//	Files:  PCM -> Writer -> ADTS stream
//
// # Native Library
//
// By default the package uses purego (CGO_ENABLED=0) and opens
// libvo-aacenc at runtime. Set VOAACENC_LIB_PATH to the library file, or
// STREAM_SDK_LIB_PATH to a directory containing it. With CGO enabled it links
// against -lvo-aacenc.
//
// # Build Tags
//
//   - novoaacenc: compile the native backend out; IsAvailable reports false
package aacenc
