package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrUnsupportedFormat is returned for WAV files that are not 16-bit PCM.
var ErrUnsupportedFormat = errors.New("unsupported wav format: want 16-bit PCM")

// Clip is a decoded mono audio clip with samples normalized to [-1, 1].
type Clip struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// DecodeWAV reads a RIFF/WAVE stream containing 16-bit PCM audio. Stereo
// input is mixed down to mono by averaging channels.
func DecodeWAV(r io.Reader) (*Clip, error) {
	var riff struct {
		ChunkID [4]byte
		Size    uint32
		Format  [4]byte
	}
	if err := binary.Read(r, binary.LittleEndian, &riff); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff.ChunkID[:]) != "RIFF" || string(riff.Format[:]) != "WAVE" {
		return nil, errors.New("not a wav file")
	}

	var (
		sampleRate    int
		numChannels   int
		bitsPerSample int
		haveFmt       bool
	)

	for {
		var chunk struct {
			ID   [4]byte
			Size uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errors.New("wav file has no data chunk")
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}

		switch string(chunk.ID[:]) {
		case "fmt ":
			var f struct {
				AudioFormat   uint16
				NumChannels   uint16
				SampleRate    uint32
				ByteRate      uint32
				BlockAlign    uint16
				BitsPerSample uint16
			}
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if rest := int64(chunk.Size) - 16; rest > 0 {
				if _, err := io.CopyN(io.Discard, r, rest); err != nil {
					return nil, fmt.Errorf("skip fmt extension: %w", err)
				}
			}
			if f.AudioFormat != 1 || f.BitsPerSample != 16 {
				return nil, ErrUnsupportedFormat
			}
			if f.NumChannels < 1 || f.NumChannels > 2 {
				return nil, fmt.Errorf("unsupported channel count %d", f.NumChannels)
			}
			sampleRate = int(f.SampleRate)
			numChannels = int(f.NumChannels)
			bitsPerSample = int(f.BitsPerSample)
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, errors.New("wav data chunk before fmt chunk")
			}
			return decodeData(r, chunk.Size, sampleRate, numChannels, bitsPerSample)

		default:
			if _, err := io.CopyN(io.Discard, r, int64(chunk.Size)); err != nil {
				return nil, fmt.Errorf("skip %q chunk: %w", chunk.ID, err)
			}
		}
	}
}

func decodeData(r io.Reader, size uint32, sampleRate, numChannels, bitsPerSample int) (*Clip, error) {
	bytesPerFrame := numChannels * bitsPerSample / 8
	frames := int(size) / bytesPerFrame

	raw := make([]byte, int(size))
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("read pcm data: %w", err)
	}

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < numChannels; c++ {
			off := i*bytesPerFrame + c*2
			v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
			sum += float64(v) / 32768.0
		}
		samples[i] = sum / float64(numChannels)
	}

	return &Clip{SampleRate: sampleRate, Samples: samples}, nil
}
