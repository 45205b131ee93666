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

package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tochemey/taskbus/internal/udp"
)

type booleanValidator struct {
	boolCheck  bool
	errMessage string
}

// NewBooleanValidator creates a validator that fails with errMessage when boolCheck is false
func NewBooleanValidator(boolCheck bool, errMessage string) Validator {
	return &booleanValidator{boolCheck: boolCheck, errMessage: errMessage}
}

// Validate returns an error if boolean check is false
func (v booleanValidator) Validate() error {
	if !v.boolCheck {
		return errors.New(v.errMessage)
	}
	return nil
}

type emptyStringValidator struct {
	field string
	value string
}

// NewEmptyStringValidator fails when value is blank
func NewEmptyStringValidator(field, value string) Validator {
	return &emptyStringValidator{field: field, value: value}
}

// Validate returns an error if the value is blank
func (v emptyStringValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return fmt.Errorf("the [%s] is required", v.field)
	}
	return nil
}

type portValidator struct {
	field string
	port  int
}

// NewPortValidator fails when port is outside 1..65535
func NewPortValidator(field string, port int) Validator {
	return &portValidator{field: field, port: port}
}

// Validate returns an error if the port is out of range
func (v portValidator) Validate() error {
	if v.port <= 0 || v.port > 65535 {
		return fmt.Errorf("the [%s] must be a valid port, got %d", v.field, v.port)
	}
	return nil
}

type durationValidator struct {
	field    string
	duration time.Duration
}

// NewPositiveDurationValidator fails when duration is zero or negative
func NewPositiveDurationValidator(field string, duration time.Duration) Validator {
	return &durationValidator{field: field, duration: duration}
}

// Validate returns an error if the duration is not positive
func (v durationValidator) Validate() error {
	if v.duration <= 0 {
		return fmt.Errorf("the [%s] must be greater than zero", v.field)
	}
	return nil
}

type bindAddressValidator struct {
	field   string
	address string
}

// NewBindAddressValidator fails when address is neither an IP nor the name of an
// interface holding one. A blank address is left to NewEmptyStringValidator.
func NewBindAddressValidator(field, address string) Validator {
	return &bindAddressValidator{field: field, address: address}
}

// Validate returns an error if the address cannot be bound
func (v bindAddressValidator) Validate() error {
	if strings.TrimSpace(v.address) == "" {
		return nil
	}
	if _, err := udp.ResolveBindAddress(v.address); err != nil {
		return fmt.Errorf("the [%s] is invalid: %w", v.field, err)
	}
	return nil
}
