// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package confirmation implements the ConfirmationBus: a typed pub/sub with
// correlation-id matching that lets a ToolScheduler ask an operator (or an
// automated front-end) whether an awaiting-approval tool call may proceed.
package confirmation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/llxcore/pkg/core"
)

// MessageType discriminates the four message shapes the bus carries.
type MessageType string

const (
	ToolConfirmationRequest    MessageType = "TOOL_CONFIRMATION_REQUEST"
	ToolConfirmationResponse   MessageType = "TOOL_CONFIRMATION_RESPONSE"
	ToolPolicyRejection        MessageType = "TOOL_POLICY_REJECTION"
	BucketAuthRequest          MessageType = "BUCKET_AUTH_CONFIRMATION_REQUEST"
	BucketAuthResponse         MessageType = "BUCKET_AUTH_CONFIRMATION_RESPONSE"
)

// Message is the envelope published on the bus and delivered to subscribers.
// Exactly one of the typed payload fields is populated, selected by Type.
type Message struct {
	Type          MessageType
	CorrelationID string

	// TOOL_CONFIRMATION_REQUEST / TOOL_POLICY_REJECTION
	ToolCall   core.ToolCallRequest
	ServerName string
	Reason     string

	// TOOL_CONFIRMATION_RESPONSE
	Outcome   core.ConfirmationOutcome
	Payload   any
	Confirmed bool

	// BUCKET_AUTH_CONFIRMATION_REQUEST / RESPONSE
	Provider     string
	Bucket       string
	BucketIndex  int
	TotalBuckets int
}

// DefaultMaxListeners bounds observer growth (spec default: 50).
const DefaultMaxListeners = 50

// DefaultConfirmationTimeout is how long requestConfirmation waits before
// giving up on a response (spec: 300s, matching the scheduler's
// awaiting_approval timer).
const DefaultConfirmationTimeout = 5 * time.Minute

var ErrTooManyListeners = fmt.Errorf("confirmation bus: listener ceiling reached")
var ErrTimeout = fmt.Errorf("confirmation bus: timed out waiting for response")
var ErrClosed = fmt.Errorf("confirmation bus: closed")

// Bus is a single-writer-per-request, multi-reader pub/sub. Subscribers
// receive every published Message in publish order. requestConfirmation
// additionally registers a private waiter keyed by correlation id so the
// matching response (and only that response) resolves the call.
type Bus struct {
	log *zap.Logger

	mu          sync.Mutex
	subscribers map[int]chan Message
	nextSubID   int
	maxListen   int

	waiters map[string]chan Message
	closed  bool
}

// New constructs a Bus. maxListeners <= 0 uses DefaultMaxListeners.
func New(log *zap.Logger, maxListeners int) *Bus {
	if maxListeners <= 0 {
		maxListeners = DefaultMaxListeners
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{
		log:         log,
		subscribers: make(map[int]chan Message),
		maxListen:   maxListeners,
		waiters:     make(map[string]chan Message),
	}
}

// Subscribe registers a listener that receives every published Message
// until ctx is cancelled. Returns ErrTooManyListeners once the ceiling is
// reached.
func (b *Bus) Subscribe(ctx context.Context) (<-chan Message, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if len(b.subscribers) >= b.maxListen {
		b.mu.Unlock()
		return nil, ErrTooManyListeners
	}
	id := b.nextSubID
	b.nextSubID++
	ch := make(chan Message, 32)
	b.subscribers[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
		b.mu.Unlock()
	}()

	return ch, nil
}

// Publish delivers msg to every current subscriber, in order, and — if a
// waiter is registered for msg.CorrelationID (via requestConfirmation) —
// resolves that waiter as well. Publish never blocks on a slow subscriber
// beyond its buffer; a full subscriber channel drops the message and logs it
// rather than stalling the publisher.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.waiters[msg.CorrelationID]; ok {
		select {
		case w <- msg:
		default:
		}
	}

	for id, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
			b.log.Warn("confirmation bus: dropping message for slow subscriber",
				zap.Int("subscriber", id), zap.String("type", string(msg.Type)))
		}
	}
}

// RequestConfirmation publishes a TOOL_CONFIRMATION_REQUEST for toolCall and
// blocks until a matching TOOL_CONFIRMATION_RESPONSE arrives, ctx is
// cancelled, or timeout elapses (timeout <= 0 uses DefaultConfirmationTimeout).
func (b *Bus) RequestConfirmation(ctx context.Context, toolCall core.ToolCallRequest, serverName string, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	correlationID := uuid.NewString()

	waitCh := make(chan Message, 1)
	b.mu.Lock()
	b.waiters[correlationID] = waitCh
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.waiters, correlationID)
		b.mu.Unlock()
	}()

	b.Publish(Message{
		Type:          ToolConfirmationRequest,
		CorrelationID: correlationID,
		ToolCall:      toolCall,
		ServerName:    serverName,
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-waitCh:
		return resp, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-timer.C:
		return Message{}, ErrTimeout
	}
}

// RequestBucketAuth is RequestConfirmation's analogue for bucket re-auth
// prompts raised by the LoadBalancer.
func (b *Bus) RequestBucketAuth(ctx context.Context, provider, bucket string, bucketIndex, totalBuckets int, timeout time.Duration) (Message, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmationTimeout
	}
	correlationID := uuid.NewString()

	waitCh := make(chan Message, 1)
	b.mu.Lock()
	b.waiters[correlationID] = waitCh
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.waiters, correlationID)
		b.mu.Unlock()
	}()

	b.Publish(Message{
		Type:          BucketAuthRequest,
		CorrelationID: correlationID,
		Provider:      provider,
		Bucket:        bucket,
		BucketIndex:   bucketIndex,
		TotalBuckets:  totalBuckets,
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-waitCh:
		return resp, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-timer.C:
		return Message{}, ErrTimeout
	}
}

// Respond delivers a TOOL_CONFIRMATION_RESPONSE for correlationID to
// whichever RequestConfirmation call is waiting on it, and broadcasts the
// response to subscribers. A response with no matching waiter (already
// timed out, or a stray duplicate) is broadcast but otherwise a no-op.
func (b *Bus) Respond(correlationID string, outcome core.ConfirmationOutcome, payload any, confirmed bool) {
	b.Publish(Message{
		Type:          ToolConfirmationResponse,
		CorrelationID: correlationID,
		Outcome:       outcome,
		Payload:       payload,
		Confirmed:     confirmed,
	})
}

// RespondBucketAuth is Respond's analogue for BUCKET_AUTH_CONFIRMATION_RESPONSE.
func (b *Bus) RespondBucketAuth(correlationID string, confirmed bool) {
	b.Publish(Message{
		Type:          BucketAuthResponse,
		CorrelationID: correlationID,
		Confirmed:     confirmed,
	})
}

// PublishPolicyRejection publishes a TOOL_POLICY_REJECTION — fire and
// forget, no response is awaited.
func (b *Bus) PublishPolicyRejection(toolCall core.ToolCallRequest, reason string) {
	b.Publish(Message{
		Type:          ToolPolicyRejection,
		CorrelationID: uuid.NewString(),
		ToolCall:      toolCall,
		Reason:        reason,
	})
}

// Close shuts every subscriber channel down. Subsequent Subscribe calls
// return ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub)
	}
}
