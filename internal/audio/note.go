//go:build linux

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hraban/opus"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

const (
	opusFrameSize = 960 // 20ms at 48kHz
	opusMaxBytes  = 4000
	// largest Opus frame is 120ms
	opusMaxFrameSamples = 5760
)

var (
	opusTagsMagic = []byte("OpusTags")

	ErrNoteFormat = errors.New("unsupported voice note")
)

// noteWriter encodes PCM into an Ogg Opus voice note, one 20ms packet per page.
type noteWriter struct {
	ogg *oggwriter.OggWriter
	enc *opus.Encoder

	pending []int16
	packet  []byte
	seq     uint16
	ts      uint32
	frames  int
	bytes   int
}

func createNote(path string) (*noteWriter, error) {
	enc, err := opus.NewEncoder(SampleRate, Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}
	ogg, err := oggwriter.New(path, SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("create voice note: %w", err)
	}
	return &noteWriter{
		ogg:     ogg,
		enc:     enc,
		pending: make([]int16, 0, opusFrameSize*4),
		packet:  make([]byte, opusMaxBytes),
	}, nil
}

// write buffers samples and emits every complete frame.
func (w *noteWriter) write(samples []int16) error {
	w.pending = append(w.pending, samples...)
	for len(w.pending) >= opusFrameSize*Channels {
		if err := w.encodeFrame(w.pending[:opusFrameSize*Channels]); err != nil {
			return err
		}
		w.pending = w.pending[opusFrameSize*Channels:]
	}
	return nil
}

// close pads the trailing partial frame with silence and finalises the file.
func (w *noteWriter) close() error {
	var firstErr error
	if len(w.pending) > 0 {
		frame := make([]int16, opusFrameSize*Channels)
		copy(frame, w.pending)
		w.pending = w.pending[:0]
		firstErr = w.encodeFrame(frame)
	}
	if err := w.ogg.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close voice note: %w", err)
	}
	return firstErr
}

func (w *noteWriter) encodeFrame(frame []int16) error {
	n, err := w.enc.Encode(frame, w.packet)
	if err != nil {
		return fmt.Errorf("opus encode: %w", err)
	}
	payload := make([]byte, n)
	copy(payload, w.packet[:n])
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			SequenceNumber: w.seq,
			Timestamp:      w.ts,
		},
		Payload: payload,
	}
	if err := w.ogg.WriteRTP(pkt); err != nil {
		return fmt.Errorf("write voice note page: %w", err)
	}
	w.seq++
	w.ts += opusFrameSize
	w.frames++
	w.bytes += n
	return nil
}

// decodeNote reads an Ogg Opus voice note into PCM at the device rate.
func decodeNote(r io.Reader) ([]int16, error) {
	ogg, header, err := oggreader.NewWith(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoteFormat, err)
	}
	if int(header.Channels) != Channels {
		return nil, fmt.Errorf("%w: %d channels", ErrNoteFormat, header.Channels)
	}
	dec, err := opus.NewDecoder(SampleRate, Channels)
	if err != nil {
		return nil, fmt.Errorf("create opus decoder: %w", err)
	}

	frame := make([]int16, opusMaxFrameSamples*Channels)
	var pcm []int16
	for {
		payload, _, err := ogg.ParseNextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoteFormat, err)
		}
		if len(payload) == 0 || bytes.HasPrefix(payload, opusTagsMagic) {
			continue
		}
		n, err := dec.Decode(payload, frame)
		if err != nil {
			return nil, fmt.Errorf("opus decode: %w", err)
		}
		pcm = append(pcm, frame[:n*Channels]...)
	}

	skip := int(header.PreSkip) * Channels
	if skip > len(pcm) {
		skip = len(pcm)
	}
	return pcm[skip:], nil
}
