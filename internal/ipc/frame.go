// Package ipc implements the length-prefixed msgpack framing used to
// carry one TaskResultFrame back from an isolated worker process.
package ipc

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/profiler/internal/types"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including the
	// length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize minus the
	// length prefix).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsFatal returns true if the error should terminate the reader loop
// rather than simply being logged (a partial or oversized frame leaves
// the stream in an unrecoverable state).
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// TaskResultFrame is the one message an isolated worker emits on stdout
// before exiting, matching spec.md §4.1's "emits exactly one message"
// contract.
type TaskResultFrame struct {
	TaskID           string             `msgpack:"task_id"`
	Status           types.Status       `msgpack:"status"`
	Payload          types.Payload      `msgpack:"payload,omitempty"`
	ErrorKind        string             `msgpack:"error_kind,omitempty"`
	ExecutionSeconds float64            `msgpack:"execution_seconds"`
}

// WorkerInput is the JSON task descriptor piped to a worker's stdin. It
// carries only what the worker needs to instantiate and run one
// algorithm; the parent keeps everything else (stage, history bookkeeping,
// etc.) to itself.
type WorkerInput struct {
	TaskID    string         `json:"task_id"`
	Family    types.Family   `json:"family"`
	Algorithm string         `json:"algorithm"`
	Params    map[string]any `json:"params"`
	Header    []string       `json:"header"`
	Rows      [][]string     `json:"rows"`
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder wraps r with a bufio.Reader (unless it already is one)
// to reduce syscall overhead reading from an OS pipe.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameDecoder{reader: br}
}

// ReadFrame reads one frame's raw msgpack payload from the stream.
//
// Errors: io.EOF on a clean stream end; *FrameError (Partial or
// TooLarge) otherwise, both fatal to the caller's read loop.
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read payload", Err: err}
	}
	return payload, nil
}

// ReadResult reads and decodes exactly one TaskResultFrame.
func (d *FrameDecoder) ReadResult() (*TaskResultFrame, error) {
	payload, err := d.ReadFrame()
	if err != nil {
		return nil, err
	}
	return DecodeResult(payload)
}

// DecodeResult decodes a raw payload as a TaskResultFrame.
func DecodeResult(payload []byte) (*TaskResultFrame, error) {
	var result TaskResultFrame
	if err := msgpack.Unmarshal(payload, &result); err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode task result", Err: err}
	}
	return &result, nil
}

// EncodeFrame prefixes payload with its 4-byte big-endian length.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf
}

// EncodeResult encodes a TaskResultFrame as a length-prefixed msgpack frame.
func EncodeResult(result *TaskResultFrame) ([]byte, error) {
	payload, err := msgpack.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task result: %w", err)
	}
	return EncodeFrame(payload), nil
}

// EncodePayload msgpack-encodes a task's success Payload for artifact
// storage, reusing the same codec as the wire frames.
func EncodePayload(payload types.Payload) ([]byte, error) {
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// IsFatalFrameError reports whether err is a fatal *FrameError.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}
