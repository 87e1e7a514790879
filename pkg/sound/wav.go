package sound

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

// EncodeWAV writes normalized mono samples as a 16-bit PCM WAV payload.
// There is no wav encoder counterpart to go-mp3 in our stack, the
// container is simple enough to write by hand.
func EncodeWAV(samples []float64, rate int) []byte {
	dataSize := len(samples) * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(rate))
	binary.Write(&buf, binary.LittleEndian, uint32(rate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))      // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))     // bits per sample

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		if s > 1.0 {
			s = 1.0
		}
		if s < -1.0 {
			s = -1.0
		}
		binary.Write(&buf, binary.LittleEndian, int16(s*32767.0))
	}
	return buf.Bytes()
}

// Tone synthesizes a sine tone with a short fade in and out. The mock
// endpoints use it as a deterministic audio payload.
func Tone(freq float64, duration time.Duration, rate int) []float64 {
	n := int(float64(rate) * duration.Seconds())
	fade := rate / 100 // 10ms
	samples := make([]float64, n)
	for i := range samples {
		v := 0.5 * math.Sin(2.0*math.Pi*freq*float64(i)/float64(rate))
		if i < fade {
			v *= float64(i) / float64(fade)
		}
		if left := n - i; left < fade {
			v *= float64(left) / float64(fade)
		}
		samples[i] = v
	}
	return samples
}
