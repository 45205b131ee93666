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

// Package pubsub fans messages out to the tasks subscribed to a topic.
package pubsub

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/tochemey/taskbus/log"
	"github.com/tochemey/taskbus/message"
)

// Sender delivers a payload to a task, wherever it runs
type Sender interface {
	SendMessage(ctx context.Context, to string, payload message.Payload)
}

// Topics defines the subscription table
type Topics interface {
	// Subscribe appends the task to the subscribers of the topic, creating the topic when absent.
	// Subscribing twice means receiving every publication twice.
	Subscribe(task, topic string)
	// Unsubscribe removes every subscription of the task to the topic
	Unsubscribe(task, topic string)
	// Publish sends a one-way message carrying data to every subscriber of the topic
	Publish(ctx context.Context, topic string, data any)
	// Subscribers returns a copy of the subscribers of the topic in subscription order
	Subscribers(topic string) []string
	// Topics returns the known topics in lexical order
	Topics() []string
}

type table struct {
	mu     sync.Mutex
	topics map[string][]string
	sender Sender
	logger log.Logger
}

var _ Topics = (*table)(nil)

// New creates an empty subscription table publishing through the sender
func New(sender Sender, logger log.Logger) Topics {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &table{
		topics: make(map[string][]string),
		sender: sender,
		logger: logger,
	}
}

func (t *table) Subscribe(task, topic string) {
	t.mu.Lock()
	t.topics[topic] = append(t.topics[topic], task)
	t.mu.Unlock()
}

func (t *table) Unsubscribe(task, topic string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subscribers, ok := t.topics[topic]
	if !ok {
		return
	}
	t.topics[topic] = slices.DeleteFunc(subscribers, func(name string) bool {
		return name == task
	})
}

// Publish holds the table lock for the whole fan-out, so a subscription
// change never interleaves with a publication.
func (t *table) Publish(ctx context.Context, topic string, data any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subscribers, ok := t.topics[topic]
	if !ok {
		t.logger.Warnf("publish on unknown topic %q", topic)
		return
	}

	for _, subscriber := range subscribers {
		t.sender.SendMessage(ctx, subscriber, message.OneWay(data))
	}
}

func (t *table) Subscribers(topic string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.topics[topic])
}

func (t *table) Topics() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	topics := make([]string, 0, len(t.topics))
	for topic := range t.topics {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	return topics
}
