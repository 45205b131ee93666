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

// Package imc carries envelopes between machines over UDP.
//
// A Server binds one socket per distinct inbound port of the remote links it
// serves. Datagrams read from those sockets are decoded and handed to the
// local Deliverer, while envelopes pushed onto a Link are encoded and written
// to the device the link points at. Nothing is acknowledged or retransmitted:
// loss, duplication and reordering are visible to the application.
package imc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/taskbus/codec"
	gerrors "github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/chain"
	"github.com/tochemey/taskbus/internal/metric"
	"github.com/tochemey/taskbus/internal/queue"
	"github.com/tochemey/taskbus/internal/ticker"
	"github.com/tochemey/taskbus/internal/udp"
	"github.com/tochemey/taskbus/internal/xsync"
	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
	"github.com/tochemey/taskbus/routing"
)

const (
	// DefaultInterval is the fallback period at which outbound links are flushed
	DefaultInterval = 50 * time.Millisecond

	// Quit is the control command that stops the server loop
	Quit = "QUIT"

	readBufferSize  = 65535
	inboundCapacity = 256
)

// Deliverer hands an inbound envelope to the local runtime
type Deliverer interface {
	Deliver(envelope *message.Envelope) error
}

type datagram struct {
	port int
	from *net.UDPAddr
	data []byte
}

// Server is the inter-machine transport of one machine
type Server struct {
	deliverer   Deliverer
	codec       *codec.Codec
	logger      log.Logger
	telemetry   *metric.Telemetry
	interval    time.Duration
	bindAddress string
	bindIP      net.IP

	mu      sync.Mutex
	sockets map[int]*net.UDPConn
	links   *xsync.Map[string, *Link]

	inbound       chan datagram
	outboundReady chan struct{}
	control       chan string
	stopCh        chan struct{}
	loopDone      chan struct{}

	started *atomic.Bool
	stopped *atomic.Bool
	readers sync.WaitGroup
}

// NewServer creates the transport and binds the inbound socket of every REMOTE descriptor.
// Descriptors sharing an inbound port share its socket. A bind failure closes
// whatever was bound and is returned.
func NewServer(deliverer Deliverer, descriptors []routing.Descriptor, opts ...Option) (*Server, error) {
	server := &Server{
		deliverer:     deliverer,
		logger:        log.DefaultLogger,
		interval:      DefaultInterval,
		bindAddress:   "0.0.0.0",
		sockets:       make(map[int]*net.UDPConn),
		links:         xsync.NewMap[string, *Link](),
		inbound:       make(chan datagram, inboundCapacity),
		outboundReady: make(chan struct{}, 1),
		control:       make(chan string, 1),
		stopCh:        make(chan struct{}),
		loopDone:      make(chan struct{}),
		started:       atomic.NewBool(false),
		stopped:       atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt.Apply(server)
	}

	if server.telemetry == nil {
		server.telemetry = metric.New()
	}

	bindIP, err := udp.ResolveBindAddress(server.bindAddress)
	if err != nil {
		return nil, err
	}
	server.bindIP = net.ParseIP(bindIP)

	if server.codec == nil {
		frameCodec, err := codec.New(codec.NoCompression)
		if err != nil {
			return nil, err
		}
		server.codec = frameCodec
	}

	errChain := chain.New(chain.WithFailFast())
	for _, descriptor := range descriptors {
		if descriptor.Scope != routing.Remote {
			continue
		}
		descriptor := descriptor
		errChain.AddRunner(func() error {
			_, err := server.AddLink(descriptor)
			return err
		})
	}

	if err := errChain.Run(); err != nil {
		server.closeSockets()
		return nil, err
	}
	return server, nil
}

// AddLink binds the inbound port of the descriptor, unless already bound, and
// returns the link writing to the device. Links can be added while the server runs.
func (s *Server) AddLink(descriptor routing.Descriptor) (*Link, error) {
	if s.stopped.Load() {
		return nil, gerrors.ErrTransportStopped
	}

	if descriptor.Scope != routing.Remote {
		return nil, fmt.Errorf("%w: %s is not a REMOTE descriptor", gerrors.ErrInvalidDescriptor, descriptor.Name)
	}

	if err := descriptor.Validate(); err != nil {
		return nil, err
	}

	if link, ok := s.links.Get(descriptor.Name); ok {
		return link, nil
	}

	remote, err := net.ResolveUDPAddr("udp", udp.JoinHostPort(descriptor.Address, descriptor.OutboundPort))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", gerrors.ErrInvalidDescriptor, err)
	}

	conn, err := s.bind(descriptor.InboundPort)
	if err != nil {
		return nil, err
	}

	link := &Link{
		device:      descriptor.Name,
		inboundPort: descriptor.InboundPort,
		remote:      remote,
		conn:        conn,
		queue:       queue.New[*message.Envelope](),
		ready:       s.outboundReady,
	}

	if !s.links.SetIfAbsent(descriptor.Name, link) {
		existing, _ := s.links.Get(descriptor.Name)
		return existing, nil
	}

	s.logger.Infof("remote link to %s via %s listening on port %d", descriptor.Name, remote, descriptor.InboundPort)
	return link, nil
}

// Link returns the link of the named device
func (s *Server) Link(device string) (*Link, bool) {
	return s.links.Get(device)
}

// Ports returns the bound inbound ports in ascending order
func (s *Server) Ports() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ports := make([]int, 0, len(s.sockets))
	for port := range s.sockets {
		ports = append(ports, port)
	}
	slices.Sort(ports)
	return ports
}

// AdvertisedAddress returns the address remote devices should send to
func (s *Server) AdvertisedAddress() (string, error) {
	return udp.AdvertisedIP(s.bindIP.String())
}

// Start launches one reader per socket and the server loop
func (s *Server) Start(ctx context.Context) error {
	if s.stopped.Load() {
		return gerrors.ErrTransportStopped
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	for port, conn := range s.sockets {
		s.startReader(port, conn)
	}
	s.mu.Unlock()

	go s.loop()
	s.logger.Infof("inter-machine transport started on ports %v", s.Ports())
	return nil
}

// Control sends a command to the server loop. Quit stops the loop between two events.
func (s *Server) Control(command string) {
	select {
	case s.control <- command:
	case <-s.loopDone:
	}
}

// Stop quits the loop, closes the sockets and waits for the readers.
// Envelopes still queued on the links are dropped. When ctx expires before
// the loop quits, the sockets are closed anyway and the loop exits once its
// current event is handled.
func (s *Server) Stop(ctx context.Context) error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.started.Load() {
		s.Control(Quit)
		select {
		case <-s.loopDone:
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	close(s.stopCh)
	s.closeSockets()
	if err != nil {
		s.logger.Warnf("inter-machine transport stopped before its loop quit: %v", err)
		return err
	}
	s.readers.Wait()

	for _, link := range s.links.Values() {
		if dropped := link.queue.CloseRemaining(); len(dropped) > 0 {
			s.logger.Warnf("dropping %d envelopes queued for %s", len(dropped), link.device)
		}
	}
	s.logger.Info("inter-machine transport stopped")
	return nil
}

func (s *Server) bind(port int) (*net.UDPConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn, ok := s.sockets[port]; ok {
		return conn, nil
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: s.bindIP, Port: port})
	if err != nil {
		return nil, gerrors.NewErrBindFailure(port, err)
	}

	s.sockets[port] = conn
	if s.started.Load() {
		s.startReader(port, conn)
	}
	return conn, nil
}

// startReader must be called with s.mu held
func (s *Server) startReader(port int, conn *net.UDPConn) {
	s.readers.Add(1)
	go func() {
		defer s.readers.Done()
		buffer := make([]byte, readBufferSize)
		for {
			n, from, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				s.logger.Errorf("failed to read from port %d: %v", port, err)
				s.telemetry.MessageDropped(context.Background(), metric.DropTransportFailure)
				continue
			}

			select {
			case s.inbound <- datagram{port: port, from: from, data: bytes.Clone(buffer[:n])}:
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *Server) loop() {
	defer close(s.loopDone)

	fallback := ticker.New(s.interval)
	fallback.Start()
	defer fallback.Stop()

	for {
		select {
		case command := <-s.control:
			if command == Quit {
				return
			}
			s.logger.Warnf("unknown control command %q", command)
		case <-s.stopCh:
			return
		case packet := <-s.inbound:
			s.receive(packet)
		case <-s.outboundReady:
			s.flush()
		case <-fallback.Ticks:
			s.flush()
		}
	}
}

func (s *Server) receive(packet datagram) {
	ctx := context.Background()
	s.telemetry.DatagramReceived(ctx)

	envelope, err := s.codec.Decode(packet.data)
	if err != nil {
		s.logger.Warnf("discarding datagram from %s on port %d: %v", packet.from, packet.port, err)
		s.telemetry.MessageDropped(ctx, metric.DropDecodeFailure)
		return
	}

	if err := s.deliverer.Deliver(envelope); err != nil {
		s.logger.Warnf("dropping %s received from %s: %v", envelope, packet.from, err)
		s.telemetry.MessageDropped(ctx, metric.DropUnknownDestination)
	}
}

func (s *Server) flush() {
	for _, link := range s.links.Values() {
		for {
			envelope, ok := link.queue.Pop()
			if !ok {
				break
			}
			s.send(link, envelope)
		}
	}
}

func (s *Server) send(link *Link, envelope *message.Envelope) {
	ctx := context.Background()
	frame, err := s.codec.Encode(envelope)
	if err != nil {
		s.logger.Warnf("dropping %s for %s: %v", envelope, link.device, err)
		s.telemetry.MessageDropped(ctx, metric.DropTransportFailure)
		return
	}

	if _, err := link.conn.WriteToUDP(frame, link.remote); err != nil {
		s.logger.Errorf("failed to send %s to %s at %s: %v", envelope, link.device, link.remote, err)
		s.telemetry.MessageDropped(ctx, metric.DropTransportFailure)
		return
	}
	s.telemetry.DatagramSent(ctx)
}

func (s *Server) closeSockets() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for port, conn := range s.sockets {
		if err := conn.Close(); err != nil {
			s.logger.Warnf("failed to close socket on port %d: %v", port, err)
		}
	}
}
