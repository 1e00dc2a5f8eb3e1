package container

import (
	"encoding/binary"
	"math"
	"os"

	"github.com/at-wat/ebml-go/mkvcore"
	"github.com/at-wat/ebml-go/webm"

	"clipforge/internal/services"
)

// Codec IDs for the tracks the in-process engines produce.
const (
	CodecMJPEG    = "V_MJPEG"
	CodecPCMFloat = "A_PCM/FLOAT/IEEE"
)

// VideoTrack describes the single video track of an output file.
type VideoTrack struct {
	Width   int
	Height  int
	CodecID string
}

// AudioTrack describes the optional audio track.
type AudioTrack struct {
	SampleRate int
	Channels   int
	CodecID    string
}

// Writer streams timestamped blocks into a Matroska file. Blocks must be
// written in non-decreasing timestamp order per track.
type Writer struct {
	file   *os.File
	video  webm.BlockWriteCloser
	audio  webm.BlockWriteCloser
	closed bool
}

// NewWriter creates the output file and writes the Matroska headers for the
// given tracks. audio may be nil for a video-only export.
func NewWriter(path string, video VideoTrack, audio *AudioTrack) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "container", "create", "creating output file", err)
	}

	tracks := []webm.TrackEntry{
		{
			Name:        "Video",
			TrackNumber: 1,
			TrackUID:    1,
			CodecID:     video.CodecID,
			TrackType:   1,
			Video: &webm.Video{
				PixelWidth:  uint64(video.Width),
				PixelHeight: uint64(video.Height),
			},
		},
	}
	if audio != nil {
		tracks = append(tracks, webm.TrackEntry{
			Name:        "Audio",
			TrackNumber: 2,
			TrackUID:    2,
			CodecID:     audio.CodecID,
			TrackType:   2,
			Audio: &webm.Audio{
				SamplingFrequency: float64(audio.SampleRate),
				Channels:          uint64(audio.Channels),
			},
		})
	}

	header := &webm.EBMLHeader{
		EBMLVersion:        1,
		EBMLReadVersion:    1,
		EBMLMaxIDLength:    4,
		EBMLMaxSizeLength:  8,
		DocType:            "matroska",
		DocTypeVersion:     4,
		DocTypeReadVersion: 2,
	}
	info := &webm.Info{
		TimecodeScale: 1000000, // 1ms
		MuxingApp:     "clipforge",
		WritingApp:    "clipforge",
	}

	blocks, err := webm.NewSimpleBlockWriter(file, tracks,
		mkvcore.WithEBMLHeader(header),
		mkvcore.WithSegmentInfo(info))
	if err != nil {
		file.Close()
		os.Remove(path)
		return nil, services.Wrap(services.ErrEngineInit, "container", "mux", "writing container headers", err)
	}

	writer := &Writer{file: file, video: blocks[0]}
	if audio != nil {
		writer.audio = blocks[1]
	}
	return writer, nil
}

// WriteVideo appends one encoded frame at the given timestamp.
func (w *Writer) WriteVideo(keyframe bool, timestampMs int64, frame []byte) error {
	if _, err := w.video.Write(keyframe, timestampMs, frame); err != nil {
		return services.Wrap(services.ErrSubprocess, "container", "mux", "writing video block", err)
	}
	return nil
}

// WriteAudio appends one PCM block at the given timestamp.
func (w *Writer) WriteAudio(timestampMs int64, pcm []byte) error {
	if w.audio == nil {
		return nil
	}
	if _, err := w.audio.Write(true, timestampMs, pcm); err != nil {
		return services.Wrap(services.ErrSubprocess, "container", "mux", "writing audio block", err)
	}
	return nil
}

// Close finalizes the segment. Safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	var firstErr error
	if err := w.video.Close(); err != nil {
		firstErr = err
	}
	if w.audio != nil {
		if err := w.audio.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	// The last block writer close finalizes and closes the file; a second
	// close on the handle is harmless.
	w.file.Close()
	if firstErr != nil {
		return services.Wrap(services.ErrSubprocess, "container", "close", "finalizing container", firstErr)
	}
	return nil
}

// PCMBytes packs interleaved float32 samples into the little-endian layout
// the PCM float codec expects.
func PCMBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(sample))
	}
	return out
}
