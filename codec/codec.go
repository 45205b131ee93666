// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package codec encodes envelopes into the frames carried by UDP datagrams
// and NATS messages: one compression tag byte followed by the CBOR body.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/message"
)

// MaxFrameSize is the largest frame a single UDP datagram can carry
const MaxFrameSize = 65507

// maxDecodedSize bounds decompression so a small datagram cannot expand without limit
const maxDecodedSize = 1 << 20

// Compression identifies the algorithm applied to the CBOR body of a frame.
// The first byte of every frame carries it so peers decode whatever they receive.
type Compression byte

const (
	// NoCompression sends the CBOR body as is
	NoCompression Compression = iota
	// ZstdCompression uses Zstandard
	ZstdCompression
	// BrotliCompression uses Brotli
	BrotliCompression
	// GzipCompression uses gzip
	GzipCompression
)

// String returns the configuration name of the compression
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case ZstdCompression:
		return "zstd"
	case BrotliCompression:
		return "brotli"
	case GzipCompression:
		return "gzip"
	default:
		return fmt.Sprintf("compression(%d)", byte(c))
	}
}

// ParseCompression converts a configuration name into a Compression
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return NoCompression, nil
	case "zstd":
		return ZstdCompression, nil
	case "brotli":
		return BrotliCompression, nil
	case "gzip":
		return GzipCompression, nil
	default:
		return NoCompression, fmt.Errorf("unknown compression %q", name)
	}
}

var (
	encOpts = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixDynamic,
	}
	decOpts = cbor.DecOptions{
		MaxNestedLevels: 64,
		IndefLength:     cbor.IndefLengthForbidden,
		IntDec:          cbor.IntDecConvertSigned,
	}

	bufferPool = sync.Pool{
		New: func() any { return new(bytes.Buffer) },
	}
)

// Codec turns envelopes into frames and back.
// A Codec is immutable after construction and safe for concurrent use.
type Codec struct {
	compression Compression
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
}

// New creates a Codec that compresses outgoing frames with the given algorithm
func New(compression Compression) (*Codec, error) {
	if compression > GzipCompression {
		return nil, fmt.Errorf("unknown compression %d", byte(compression))
	}

	encMode, err := encOpts.EncMode()
	if err != nil {
		return nil, err
	}

	decMode, err := decOpts.DecMode()
	if err != nil {
		return nil, err
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, err
	}

	return &Codec{
		compression: compression,
		encMode:     encMode,
		decMode:     decMode,
		zstdEncoder: encoder,
		zstdDecoder: decoder,
	}, nil
}

// Compression returns the algorithm applied to outgoing frames
func (c *Codec) Compression() Compression {
	return c.compression
}

// Encode serializes the envelope into a frame
func (c *Codec) Encode(envelope *message.Envelope) ([]byte, error) {
	body, err := c.encMode.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	var frame []byte
	switch c.compression {
	case ZstdCompression:
		frame = c.zstdEncoder.EncodeAll(body, []byte{byte(ZstdCompression)})
	case BrotliCompression:
		frame, err = compressWith(BrotliCompression, body, func(w io.Writer) io.WriteCloser {
			return brotli.NewWriterLevel(w, brotli.DefaultCompression)
		})
	case GzipCompression:
		frame, err = compressWith(GzipCompression, body, func(w io.Writer) io.WriteCloser {
			return gzip.NewWriter(w)
		})
	default:
		frame = append([]byte{byte(NoCompression)}, body...)
	}

	if err != nil {
		return nil, err
	}

	if len(frame) > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes: %w", len(frame), errors.ErrDatagramTooLarge)
	}
	return frame, nil
}

// Decode deserializes a frame produced by any Codec
func (c *Codec) Decode(frame []byte) (*message.Envelope, error) {
	if len(frame) < 2 {
		return nil, errors.NewErrInvalidFrame(fmt.Errorf("frame of %d bytes", len(frame)))
	}

	var (
		body []byte
		err  error
	)

	switch Compression(frame[0]) {
	case NoCompression:
		body = frame[1:]
	case ZstdCompression:
		body, err = c.zstdDecoder.DecodeAll(frame[1:], nil)
	case BrotliCompression:
		body, err = readAll(brotli.NewReader(bytes.NewReader(frame[1:])))
	case GzipCompression:
		var reader *gzip.Reader
		if reader, err = gzip.NewReader(bytes.NewReader(frame[1:])); err == nil {
			body, err = readAll(reader)
			_ = reader.Close()
		}
	default:
		err = fmt.Errorf("unknown compression tag %d", frame[0])
	}

	if err != nil {
		return nil, errors.NewErrInvalidFrame(err)
	}

	envelope := new(message.Envelope)
	if err := c.decMode.Unmarshal(body, envelope); err != nil {
		return nil, errors.NewErrInvalidFrame(err)
	}

	if envelope.To == "" {
		return nil, errors.NewErrInvalidFrame(errors.ErrTaskNameRequired)
	}
	return envelope, nil
}

func compressWith(tag Compression, body []byte, newWriter func(io.Writer) io.WriteCloser) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	buf.WriteByte(byte(tag))
	writer := newWriter(buf)
	if _, err := writer.Write(body); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

func readAll(reader io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(reader, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxDecodedSize {
		return nil, fmt.Errorf("decoded body exceeds %d bytes", maxDecodedSize)
	}
	return body, nil
}
