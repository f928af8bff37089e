package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// PCM is decoded audio as interleaved stereo int16 frames.
type PCM struct {
	Samples    []int16 // L, R, L, R, ...
	SampleRate int
}

// Frames returns the number of stereo frames.
func (p *PCM) Frames() int {
	return len(p.Samples) / 2
}

// Duration returns the clip length in seconds.
func (p *PCM) Duration() float64 {
	if p.SampleRate == 0 {
		return 0
	}
	return float64(p.Frames()) / float64(p.SampleRate)
}

// Decode turns a clip into PCM.
func Decode(c Clip) (*PCM, error) {
	switch c.Format {
	case FormatWAV:
		return DecodeWAV(c.Data)
	case FormatMP3, "":
		return DecodeMP3(c.Data)
	default:
		return nil, fmt.Errorf("audio: unsupported format %q", c.Format)
	}
}

// DecodeMP3 decodes an MP3 stream. go-mp3 always yields 16-bit stereo.
func DecodeMP3(data []byte) (*PCM, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("audio: decode mp3: %w", err)
	}

	raw, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("audio: decode mp3: %w", err)
	}
	return &PCM{Samples: bytesToInt16(raw), SampleRate: d.SampleRate()}, nil
}

// DecodeWAV decodes a 16-bit PCM RIFF/WAVE file, mono or stereo.
func DecodeWAV(data []byte) (*PCM, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("audio: not a RIFF/WAVE file")
	}

	var (
		channels, bits, format int
		rate                   int
		foundFmt               bool
	)

	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return nil, errors.New("audio: truncated fmt chunk")
			}
			format = int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			rate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bits = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			foundFmt = true

		case "data":
			if !foundFmt {
				return nil, errors.New("audio: data chunk before fmt chunk")
			}
			// 1 is integer PCM, 0xFFFE is WAVE_FORMAT_EXTENSIBLE
			if (format != 1 && format != 0xFFFE) || bits != 16 {
				return nil, fmt.Errorf("audio: unsupported wav encoding (format %d, %d bits)", format, bits)
			}
			end := body + size
			if end > len(data) || size == 0 {
				// streamed WAVs leave the size unset
				end = len(data)
			}
			return toStereo(bytesToInt16(data[body:end]), channels, rate)
		}

		offset = body + size
		if size%2 != 0 {
			offset++
		}
	}
	return nil, errors.New("audio: wav has no data chunk")
}

func toStereo(samples []int16, channels, rate int) (*PCM, error) {
	switch channels {
	case 2:
		return &PCM{Samples: samples[:len(samples)/2*2], SampleRate: rate}, nil
	case 1:
		out := make([]int16, len(samples)*2)
		for i, s := range samples {
			out[2*i], out[2*i+1] = s, s
		}
		return &PCM{Samples: out, SampleRate: rate}, nil
	default:
		return nil, fmt.Errorf("audio: unsupported channel count %d", channels)
	}
}

func bytesToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}
