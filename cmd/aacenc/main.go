// Command aacenc encodes PCM audio to AAC with libvo-aacenc and publishes it
// over RTMP.
package main

func main() {
	Execute()
}
