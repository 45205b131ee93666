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

package log

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 3
	defaultMaxAgeDays = 7
)

// RotationOption configures a rotating log file
type RotationOption func(*lumberjack.Logger)

// WithMaxSize sets the size in megabytes a log file reaches before it is rotated
func WithMaxSize(megabytes int) RotationOption {
	return func(l *lumberjack.Logger) {
		l.MaxSize = megabytes
	}
}

// WithMaxBackups sets the number of rotated files to retain
func WithMaxBackups(count int) RotationOption {
	return func(l *lumberjack.Logger) {
		l.MaxBackups = count
	}
}

// WithMaxAge sets the number of days rotated files are kept
func WithMaxAge(days int) RotationOption {
	return func(l *lumberjack.Logger) {
		l.MaxAge = days
	}
}

// WithCompression gzips rotated files
func WithCompression() RotationOption {
	return func(l *lumberjack.Logger) {
		l.Compress = true
	}
}

// NewRotatingWriter returns a size-rotated log file writer to be handed to NewZap.
// Closing the returned writer releases the underlying file.
func NewRotatingWriter(filename string, opts ...RotationOption) io.WriteCloser {
	writer := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
	}
	for _, opt := range opts {
		opt(writer)
	}
	return writer
}
