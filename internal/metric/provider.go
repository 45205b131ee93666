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

package metric

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/tochemey/taskbus"

	// DropUnknownDestination labels messages addressed to an unknown task
	DropUnknownDestination = "unknown_destination"
	// DropHandleAbsent labels messages whose route has no transport handle
	DropHandleAbsent = "handle_absent"
	// DropDecodeFailure labels frames that could not be decoded
	DropDecodeFailure = "decode_failure"
	// DropTransportFailure labels messages a transport failed to carry
	DropTransportFailure = "transport_failure"
)

// Option configures the Telemetry
type Option func(*Telemetry)

// WithMeterProvider sets the meter provider. A nil provider is ignored.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(t *Telemetry) {
		if provider != nil {
			t.meterProvider = provider
		}
	}
}

// Telemetry holds the messaging instruments.
// With no provider installed the global noop provider makes every call free.
type Telemetry struct {
	meterProvider metric.MeterProvider
	meter         metric.Meter

	sent             metric.Int64Counter
	delivered        metric.Int64Counter
	dropped          metric.Int64Counter
	datagramsIn      metric.Int64Counter
	datagramsOut     metric.Int64Counter
	instrumentsReady bool
}

// New creates the Telemetry using the global meter provider unless one is given.
// Instruments that fail to register are left unset and their recordings skipped.
func New(opts ...Option) *Telemetry {
	t := &Telemetry{meterProvider: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(t)
	}
	t.meter = t.meterProvider.Meter(instrumentationName)
	t.instrumentsReady = t.register() == nil
	return t
}

// Meter returns the Meter used by this Telemetry.
func (t *Telemetry) Meter() metric.Meter {
	return t.meter
}

// MessageSent counts a message handed to a destination, labelled by path (local, process, device)
func (t *Telemetry) MessageSent(ctx context.Context, path string) {
	if t.instrumentsReady {
		t.sent.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
	}
}

// MessageDelivered counts a message dispatched to a task
func (t *Telemetry) MessageDelivered(ctx context.Context) {
	if t.instrumentsReady {
		t.delivered.Add(ctx, 1)
	}
}

// MessageDropped counts a message dropped for the given reason
func (t *Telemetry) MessageDropped(ctx context.Context, reason string) {
	if t.instrumentsReady {
		t.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}

// DatagramReceived counts an inbound UDP datagram
func (t *Telemetry) DatagramReceived(ctx context.Context) {
	if t.instrumentsReady {
		t.datagramsIn.Add(ctx, 1)
	}
}

// DatagramSent counts an outbound UDP datagram
func (t *Telemetry) DatagramSent(ctx context.Context) {
	if t.instrumentsReady {
		t.datagramsOut.Add(ctx, 1)
	}
}

func (t *Telemetry) register() error {
	var err error
	if t.sent, err = t.meter.Int64Counter(
		"taskbus.messages.sent",
		metric.WithDescription("Total number of messages handed to a destination"),
	); err != nil {
		return err
	}

	if t.delivered, err = t.meter.Int64Counter(
		"taskbus.messages.delivered",
		metric.WithDescription("Total number of messages dispatched to a task"),
	); err != nil {
		return err
	}

	if t.dropped, err = t.meter.Int64Counter(
		"taskbus.messages.dropped",
		metric.WithDescription("Total number of messages dropped"),
	); err != nil {
		return err
	}

	if t.datagramsIn, err = t.meter.Int64Counter(
		"taskbus.imc.datagrams.received",
		metric.WithDescription("Total number of datagrams read from inbound sockets"),
	); err != nil {
		return err
	}

	t.datagramsOut, err = t.meter.Int64Counter(
		"taskbus.imc.datagrams.sent",
		metric.WithDescription("Total number of datagrams written to remote devices"),
	)
	return err
}
