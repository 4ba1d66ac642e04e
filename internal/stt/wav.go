package stt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVHeaderSize is the size of the canonical header written by BuildWAV.
const WAVHeaderSize = 44

const (
	wavChannels   = 1
	wavBitDepth   = 16
	wavFormatPCM  = 1
	encodeSamples = 4096
)

// BuildWAV wraps 16-bit mono little-endian PCM in a canonical WAV container.
func BuildWAV(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm) < 2 {
		return nil, errors.New("encode wav: no samples")
	}
	out := &memFile{buf: make([]byte, 0, WAVHeaderSize+len(pcm))}
	enc := wav.NewEncoder(out, sampleRate, wavBitDepth, wavChannels, wavFormatPCM)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: wavChannels, SampleRate: sampleRate},
		SourceBitDepth: wavBitDepth,
		Data:           make([]int, 0, encodeSamples),
	}
	for off := 0; off+1 < len(pcm); {
		buf.Data = buf.Data[:0]
		for ; off+1 < len(pcm) && len(buf.Data) < encodeSamples; off += 2 {
			buf.Data = append(buf.Data, int(int16(binary.LittleEndian.Uint16(pcm[off:]))))
		}
		if err := enc.Write(buf); err != nil {
			return nil, fmt.Errorf("encode wav: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finish wav: %w", err)
	}
	return out.buf, nil
}

// memFile is an in-memory io.WriteSeeker for the encoder, which rewrites
// the chunk sizes once all samples are written.
type memFile struct {
	buf []byte
	pos int
}

func (f *memFile) Write(p []byte) (int, error) {
	if end := f.pos + len(p); end > len(f.buf) {
		f.buf = append(f.buf, make([]byte, end-len(f.buf))...)
	}
	n := copy(f.buf[f.pos:], p)
	f.pos += n
	return n, nil
}

func (f *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = len(f.buf)
	default:
		return 0, errors.New("memfile: invalid whence")
	}
	next := base + int(offset)
	if next < 0 {
		return 0, errors.New("memfile: negative position")
	}
	f.pos = next
	return int64(next), nil
}
