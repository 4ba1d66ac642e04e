package audio

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// MaxBufferSamples caps the pending sample buffer (about 12.5 minutes of
// 16kHz mono). Samples arriving while the buffer is full are dropped.
const MaxBufferSamples = 12 * 1024 * 1024

// RMS returns the root mean square of samples clamped to [0,1].
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	v := math.Sqrt(sum / float64(len(samples)))
	if math.IsNaN(v) {
		return 0
	}
	return float32(min(max(v, 0), 1))
}

// ToMono down-mixes interleaved frames by averaging across channels.
func ToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// Downsample resamples mono audio from one rate to another with linear
// interpolation.
func Downsample(samples []float32, from, to int) []float32 {
	if from == to || from <= 0 || to <= 0 || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, outLen)
	for i := range out {
		src := float64(i) * ratio
		idx := int(src)
		frac := float32(src - float64(idx))
		if idx+1 < len(samples) {
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		} else {
			out[i] = samples[min(idx, len(samples)-1)]
		}
	}
	return out
}

// Quantize converts a float sample to 16-bit signed PCM.
func Quantize(s float32) int16 {
	v := math.Round(float64(s) * 32767)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// EncodePCM serializes samples as little-endian bytes.
func EncodePCM(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Level is a lock-free float cell holding the latest volume reading.
type Level struct {
	bits atomic.Uint32
}

func (l *Level) Set(v float32) { l.bits.Store(math.Float32bits(v)) }

func (l *Level) Get() float32 { return math.Float32frombits(l.bits.Load()) }

// Processor converts raw device frames into fixed-size PCM chunks. It is
// driven from the hardware callback, so it never blocks.
type Processor struct {
	deviceChannels int
	deviceRate     int
	targetRate     int
	toMono         bool
	chunkSamples   int
	maxSamples     int

	buf   []int16
	out   chan<- []byte
	level *Level
	drops atomic.Uint64
}

// NewProcessor builds a processor for a device format feeding out.
func NewProcessor(deviceChannels, deviceRate int, cfg Config, out chan<- []byte, level *Level) *Processor {
	return &Processor{
		deviceChannels: deviceChannels,
		deviceRate:     deviceRate,
		targetRate:     cfg.SampleRate,
		toMono:         cfg.Channels == 1 && deviceChannels > 1,
		chunkSamples:   cfg.ChunkSamples(),
		maxSamples:     MaxBufferSamples,
		out:            out,
		level:          level,
	}
}

// Process handles one interleaved float32 frame from the device.
func (p *Processor) Process(in []float32) {
	if p.level != nil {
		p.level.Set(RMS(in))
	}

	samples := in
	if p.toMono {
		samples = ToMono(samples, p.deviceChannels)
	}
	if p.deviceRate != p.targetRate {
		samples = Downsample(samples, p.deviceRate, p.targetRate)
	}

	room := p.maxSamples - len(p.buf)
	if room < len(samples) {
		samples = samples[:max(room, 0)]
	}
	for _, s := range samples {
		p.buf = append(p.buf, Quantize(s))
	}

	for len(p.buf) >= p.chunkSamples {
		chunk := EncodePCM(p.buf[:p.chunkSamples])
		p.buf = append(p.buf[:0], p.buf[p.chunkSamples:]...)
		select {
		case p.out <- chunk:
		default:
			p.drops.Add(1)
		}
	}
}

// Dropped returns how many chunks were discarded because the consumer
// was not keeping up.
func (p *Processor) Dropped() uint64 { return p.drops.Load() }

// Buffered returns the number of samples waiting for a full chunk.
func (p *Processor) Buffered() int { return len(p.buf) }
