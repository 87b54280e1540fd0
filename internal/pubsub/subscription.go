/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pubsub

import (
	"sync"
	"sync/atomic"
)

type HandleT uint32

const (
	InvalidHandle HandleT = 0
)

var (
	lastHandle atomic.Uint32
)

// Subscription delivers notifications from a SubscriptionSet to a sink channel.
// The sink is closed when the subscription is cancelled.
type Subscription[T any] struct {
	Handle HandleT
	sink   chan<- T
	owner  *SubscriptionSet[T]
	lock   *sync.Mutex
}

func newSubscription[T any](owner *SubscriptionSet[T], sink chan<- T) *Subscription[T] {
	return &Subscription[T]{
		Handle: HandleT(lastHandle.Add(1)),
		sink:   sink,
		owner:  owner,
		lock:   &sync.Mutex{},
	}
}

func (s *Subscription[T]) Cancel() {
	s.lock.Lock()
	handle := s.Handle
	if handle != InvalidHandle {
		s.Handle = InvalidHandle
		close(s.sink)
		s.sink = nil
	}
	s.lock.Unlock()

	// Called without holding the subscription lock; the owner takes its own lock.
	if handle != InvalidHandle {
		s.owner.onSubscriptionCancelled(handle)
	}
}

// Notify delivers the notification to the sink. It is a no-op if the subscription has been cancelled.
// The sink must be able to accept the notification without excessive blocking.
func (s *Subscription[T]) Notify(n T) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.sink == nil {
		return
	}

	s.sink <- n
}

func (s *Subscription[T]) Cancelled() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.Handle == InvalidHandle
}
