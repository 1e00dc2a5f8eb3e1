package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// DecodeWAV parses a RIFF/WAVE stream into a Buffer. PCM16 and IEEE float32
// payloads are supported, which covers the temp files the pipeline writes and
// the uncompressed sources editors hand over directly.
func DecodeWAV(r io.Reader) (*Buffer, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("wav: read header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE stream")
	}

	var (
		format     uint16
		channels   uint16
		sampleRate uint32
		bits       uint16
		haveFmt    bool
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("wav: missing data chunk")
			}
			return nil, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			if size < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too small")
			}
			format = binary.LittleEndian.Uint16(body[0:2])
			channels = binary.LittleEndian.Uint16(body[2:4])
			sampleRate = binary.LittleEndian.Uint32(body[4:8])
			bits = binary.LittleEndian.Uint16(body[14:16])
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("wav: data chunk before fmt chunk")
			}
			return decodeWAVData(r, size, format, channels, sampleRate, bits)
		default:
			if _, err := io.CopyN(io.Discard, r, int64(size)+int64(size%2)); err != nil {
				return nil, fmt.Errorf("wav: skip %s chunk: %w", id, err)
			}
		}
	}
}

func decodeWAVData(r io.Reader, size uint32, format, channels uint16, sampleRate uint32, bits uint16) (*Buffer, error) {
	if channels == 0 || sampleRate == 0 {
		return nil, fmt.Errorf("wav: invalid fmt (channels=%d rate=%d)", channels, sampleRate)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("wav: read data chunk: %w", err)
	}

	buf := &Buffer{SampleRate: int(sampleRate), Channels: int(channels)}
	switch {
	case format == 1 && bits == 16:
		count := len(payload) / 2
		buf.Samples = make([]float32, count)
		for i := 0; i < count; i++ {
			s := int16(binary.LittleEndian.Uint16(payload[i*2:]))
			buf.Samples[i] = float32(s) / 32768
		}
	case format == 3 && bits == 32:
		count := len(payload) / 4
		buf.Samples = make([]float32, count)
		for i := 0; i < count; i++ {
			buf.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
		}
	default:
		return nil, fmt.Errorf("wav: unsupported encoding (format=%d bits=%d)", format, bits)
	}
	return buf, nil
}

// EncodeWAV writes buf as a PCM16 RIFF/WAVE stream.
func EncodeWAV(w io.Writer, buf *Buffer) error {
	dataSize := uint32(len(buf.Samples) * 2)
	byteRate := uint32(buf.SampleRate * buf.Channels * 2)
	blockAlign := uint16(buf.Channels * 2)

	header := make([]byte, 0, 44)
	header = append(header, "RIFF"...)
	header = binary.LittleEndian.AppendUint32(header, 36+dataSize)
	header = append(header, "WAVE"...)
	header = append(header, "fmt "...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, 1) // PCM
	header = binary.LittleEndian.AppendUint16(header, uint16(buf.Channels))
	header = binary.LittleEndian.AppendUint32(header, uint32(buf.SampleRate))
	header = binary.LittleEndian.AppendUint32(header, byteRate)
	header = binary.LittleEndian.AppendUint16(header, blockAlign)
	header = binary.LittleEndian.AppendUint16(header, 16)
	header = append(header, "data"...)
	header = binary.LittleEndian.AppendUint32(header, dataSize)
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}

	payload := make([]byte, len(buf.Samples)*2)
	for i, sample := range buf.Samples {
		s := clampSample(sample)
		binary.LittleEndian.PutUint16(payload[i*2:], uint16(int16(s*32767)))
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("wav: write data: %w", err)
	}
	return nil
}
