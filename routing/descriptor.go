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

// Package routing resolves a task name to the process or device that owns it.
//
// Route descriptors come in two tables. LOCAL descriptors name the processes
// of this machine and REMOTE descriptors name remote devices together with
// their network endpoint. Resolution always searches LOCAL first.
package routing

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tochemey/taskbus/errors"
	"github.com/tochemey/taskbus/internal/validation"
)

// Scope tells which table a descriptor belongs to
type Scope int

const (
	// Local describes a process on this machine
	Local Scope = iota
	// Remote describes a remote device reached over UDP
	Remote
)

// String returns the name of the scope
func (s Scope) String() string {
	switch s {
	case Local:
		return "LOCAL"
	case Remote:
		return "REMOTE"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// Descriptor names the tasks hosted by a process or device.
// Address and ports are only meaningful for Remote descriptors: InboundPort is
// bound on this machine to receive from the device and OutboundPort is the port
// the device listens on.
type Descriptor struct {
	Scope        Scope    `cbor:"1,keyasint"`
	Name         string   `cbor:"2,keyasint"`
	Tasks        []string `cbor:"3,keyasint"`
	Address      string   `cbor:"4,keyasint,omitempty"`
	InboundPort  int      `cbor:"5,keyasint,omitempty"`
	OutboundPort int      `cbor:"6,keyasint,omitempty"`
}

// NewLocal creates a LOCAL descriptor
func NewLocal(process string, tasks ...string) Descriptor {
	return Descriptor{Scope: Local, Name: process, Tasks: tasks}
}

// NewRemote creates a REMOTE descriptor
func NewRemote(device string, address string, inboundPort, outboundPort int, tasks ...string) Descriptor {
	return Descriptor{
		Scope:        Remote,
		Name:         device,
		Tasks:        tasks,
		Address:      address,
		InboundPort:  inboundPort,
		OutboundPort: outboundPort,
	}
}

// Validate checks the descriptor is well formed
func (d Descriptor) Validate() error {
	chain := validation.New(validation.AllErrors()).
		AddValidator(validation.NewEmptyStringValidator("name", d.Name)).
		AddAssertion(d.Scope == Local || d.Scope == Remote, fmt.Sprintf("unknown scope %d", int(d.Scope))).
		AddAssertion(!slices.Contains(d.Tasks, ""), "task names must not be empty")

	if d.Scope == Remote {
		chain.
			AddValidator(validation.NewEmptyStringValidator("address", d.Address)).
			AddValidator(validation.NewPortValidator("inboundPort", d.InboundPort)).
			AddValidator(validation.NewPortValidator("outboundPort", d.OutboundPort))
	}

	if err := chain.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidDescriptor, err)
	}
	return nil
}

// Hosts reports whether the descriptor names the task
func (d Descriptor) Hosts(task string) bool {
	return slices.Contains(d.Tasks, task)
}

// Clone returns a deep copy of the descriptor
func (d Descriptor) Clone() Descriptor {
	d.Tasks = slices.Clone(d.Tasks)
	return d
}

// String renders the descriptor the way a topology file lists it
func (d Descriptor) String() string {
	tasks := strings.Join(d.Tasks, ",")
	if d.Scope == Remote {
		return fmt.Sprintf("%s %s=%s:%s,%d,%d", d.Scope, d.Name, tasks, d.Address, d.InboundPort, d.OutboundPort)
	}
	return fmt.Sprintf("%s %s=%s", d.Scope, d.Name, tasks)
}
