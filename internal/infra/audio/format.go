package audio

// Format describes an interleaved PCM sample stream.
type Format struct {
	SampleRate int // Samples per second per channel
	Channels   int // Interleaved channel count
}
