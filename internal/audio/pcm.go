package audio

import "fmt"

// Buffer holds interleaved PCM samples in [-1,1].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// Frames returns the number of sample frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Conform returns a buffer matching the target rate and channel count,
// converting as needed. The receiver is returned unchanged when it already
// conforms. Linear interpolation is used for rate conversion; channel
// conversion duplicates mono or averages stereo.
func (b *Buffer) Conform(sampleRate, channels int) (*Buffer, error) {
	if b.SampleRate == sampleRate && b.Channels == channels {
		return b, nil
	}
	if b.Channels < 1 || b.Channels > 2 || channels < 1 || channels > 2 {
		return nil, fmt.Errorf("conform pcm: unsupported channel count %d -> %d", b.Channels, channels)
	}

	src := b
	if src.Channels != channels {
		converted := &Buffer{SampleRate: src.SampleRate, Channels: channels}
		frames := src.Frames()
		converted.Samples = make([]float32, frames*channels)
		for frame := 0; frame < frames; frame++ {
			if channels == 2 { // mono -> stereo
				s := src.Samples[frame]
				converted.Samples[frame*2] = s
				converted.Samples[frame*2+1] = s
			} else { // stereo -> mono
				l := src.Samples[frame*2]
				r := src.Samples[frame*2+1]
				converted.Samples[frame] = (l + r) / 2
			}
		}
		src = converted
	}

	if src.SampleRate != sampleRate {
		inFrames := src.Frames()
		outFrames := int(float64(inFrames) * float64(sampleRate) / float64(src.SampleRate))
		resampled := &Buffer{SampleRate: sampleRate, Channels: channels}
		resampled.Samples = make([]float32, outFrames*channels)
		ratio := float64(src.SampleRate) / float64(sampleRate)
		for frame := 0; frame < outFrames; frame++ {
			pos := float64(frame) * ratio
			i := int(pos)
			frac := float32(pos - float64(i))
			j := i + 1
			if j >= inFrames {
				j = inFrames - 1
			}
			for ch := 0; ch < channels; ch++ {
				a := src.Samples[i*channels+ch]
				bs := src.Samples[j*channels+ch]
				resampled.Samples[frame*channels+ch] = a + (bs-a)*frac
			}
		}
		src = resampled
	}
	return src, nil
}

func clampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
