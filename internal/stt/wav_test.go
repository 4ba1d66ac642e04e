package stt

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-audio/wav"
)

func TestBuildWAVHeader(t *testing.T) {
	// Two one-second chunks of 16kHz silence
	pcm := make([]byte, 2*16000*2)
	data, err := BuildWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("BuildWAV failed: %v", err)
	}

	if len(data) != WAVHeaderSize+len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", WAVHeaderSize+len(pcm), len(data))
	}

	le := binary.LittleEndian
	tests := []struct {
		name string
		got  uint32
		want uint32
	}{
		{"riff size", le.Uint32(data[4:8]), 36 + 64000},
		{"fmt size", le.Uint32(data[16:20]), 16},
		{"format", uint32(le.Uint16(data[20:22])), 1},
		{"channels", uint32(le.Uint16(data[22:24])), 1},
		{"sample rate", le.Uint32(data[24:28]), 16000},
		{"byte rate", le.Uint32(data[28:32]), 32000},
		{"block align", uint32(le.Uint16(data[32:34])), 2},
		{"bits", uint32(le.Uint16(data[34:36])), 16},
		{"data len", le.Uint32(data[40:44]), 64000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, tt.got)
			}
		})
	}

	for _, tag := range []struct {
		off  int
		want string
	}{{0, "RIFF"}, {8, "WAVE"}, {12, "fmt "}, {36, "data"}} {
		if got := string(data[tag.off : tag.off+4]); got != tag.want {
			t.Errorf("Expected %q at %d, got %q", tag.want, tag.off, got)
		}
	}
}

func TestBuildWAVRoundTrip(t *testing.T) {
	for _, rate := range []int{8000, 16000, 44100, 48000} {
		samples := []int16{0, 1, -1, 32767, -32768, 1234, -4321}
		pcm := make([]byte, len(samples)*2)
		for i, s := range samples {
			binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
		}

		data, err := BuildWAV(pcm, rate)
		if err != nil {
			t.Fatalf("rate %d: BuildWAV failed: %v", rate, err)
		}
		dec := wav.NewDecoder(bytes.NewReader(data))
		if !dec.IsValidFile() {
			t.Fatalf("rate %d: decoder rejected file", rate)
		}

		buf, err := dec.FullPCMBuffer()
		if err != nil {
			t.Fatalf("rate %d: decode failed: %v", rate, err)
		}

		if int(dec.SampleRate) != rate {
			t.Errorf("Expected sample rate %d, got %d", rate, dec.SampleRate)
		}
		if dec.NumChans != 1 {
			t.Errorf("Expected 1 channel, got %d", dec.NumChans)
		}
		if dec.BitDepth != 16 {
			t.Errorf("Expected 16 bits, got %d", dec.BitDepth)
		}
		if len(buf.Data) != len(samples) {
			t.Fatalf("Expected %d samples, got %d", len(samples), len(buf.Data))
		}
		for i, s := range samples {
			if buf.Data[i] != int(s) {
				t.Errorf("Sample %d: expected %d, got %d", i, s, buf.Data[i])
			}
		}
	}
}

func TestBuildWAVLarge(t *testing.T) {
	// Spans several encoder blocks
	samples := 3*encodeSamples + 17
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%2000-1000)))
	}

	data, err := BuildWAV(pcm, 16000)
	if err != nil {
		t.Fatalf("BuildWAV failed: %v", err)
	}
	if len(data) != WAVHeaderSize+len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", WAVHeaderSize+len(pcm), len(data))
	}
	if !bytes.Equal(data[WAVHeaderSize:], pcm) {
		t.Error("Expected sample data to be copied unchanged")
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(len(pcm)) {
		t.Errorf("Expected data length %d, got %d", len(pcm), got)
	}
}

func TestBuildWAVEmpty(t *testing.T) {
	if _, err := BuildWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty PCM")
	}
}
