package live

import (
	"encoding/binary"
	"math"
)

// RMSEnergy computes the normalized RMS energy (0..1) of 16-bit little
// endian mono PCM.
func RMSEnergy(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	n := len(pcm) / 2
	var sum float64
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(n))
}

// PeakAmplitude returns the normalized peak amplitude (0..1) of 16-bit
// little endian mono PCM.
func PeakAmplitude(pcm []byte) float64 {
	var peak float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		f := math.Abs(float64(s) / 32768.0)
		if f > peak {
			peak = f
		}
	}
	return peak
}

// ringBuffer keeps the most recent maxBytes of PCM, used for prefix
// padding at speech onset.
type ringBuffer struct {
	buf      []byte
	maxBytes int
}

func newRingBuffer(maxBytes int) *ringBuffer {
	return &ringBuffer{maxBytes: maxBytes}
}

func (r *ringBuffer) Write(p []byte) {
	if r.maxBytes <= 0 {
		return
	}
	r.buf = append(r.buf, p...)
	if len(r.buf) > r.maxBytes {
		r.buf = r.buf[len(r.buf)-r.maxBytes:]
	}
}

// Drain returns the buffered audio and resets the buffer.
func (r *ringBuffer) Drain() []byte {
	out := r.buf
	r.buf = nil
	return out
}

func (r *ringBuffer) Reset() {
	r.buf = nil
}
