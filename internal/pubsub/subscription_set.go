/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pubsub

import (
	"context"
	"maps"
	"slices"
	"sync"
)

type NotifierFunc[T any] func(ctx context.Context, ss *SubscriptionSet[T])

// SubscriptionSet manages a set of subscriptions that share the same source of notifications.
type SubscriptionSet[T any] struct {
	// Called in a separate goroutine when the first subscription is added.
	// It should watch the source of notifications and call Notify() on the set.
	// The passed-in context is cancelled when the last subscription is cancelled.
	notifierFunc NotifierFunc[T]

	subscriptions     map[HandleT]*Subscription[T]
	notifierCtxCancel context.CancelFunc
	notifierParentCtx context.Context
	mutex             *sync.Mutex
}

func NewSubscriptionSet[T any](notifierFunc NotifierFunc[T], parentCtx context.Context) *SubscriptionSet[T] {
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	return &SubscriptionSet[T]{
		notifierFunc:      notifierFunc,
		subscriptions:     make(map[HandleT]*Subscription[T]),
		notifierParentCtx: parentCtx,
		mutex:             &sync.Mutex{},
	}
}

func (ss *SubscriptionSet[T]) Subscribe(sink chan<- T) *Subscription[T] {
	sub := newSubscription(ss, sink)

	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	ss.subscriptions[sub.Handle] = sub

	if len(ss.subscriptions) == 1 && ss.notifierFunc != nil {
		notifierCtx, cancelFunc := context.WithCancel(ss.notifierParentCtx)
		ss.notifierCtxCancel = cancelFunc
		go ss.notifierFunc(notifierCtx, ss)
	}

	return sub
}

func (ss *SubscriptionSet[T]) Notify(n T) {
	for _, sub := range ss.current() {
		sub.Notify(n)
	}
}

func (ss *SubscriptionSet[T]) Len() int {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return len(ss.subscriptions)
}

func (ss *SubscriptionSet[T]) CancelAll() {
	for _, sub := range ss.current() {
		sub.Cancel()
	}
}

func (ss *SubscriptionSet[T]) current() []*Subscription[T] {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return slices.Collect(maps.Values(ss.subscriptions))
}

func (ss *SubscriptionSet[T]) onSubscriptionCancelled(handle HandleT) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	before := len(ss.subscriptions)
	delete(ss.subscriptions, handle)

	if before == 1 && len(ss.subscriptions) == 0 && ss.notifierCtxCancel != nil {
		// We removed the last subscription; cancel the notifier goroutine
		ss.notifierCtxCancel()
		ss.notifierCtxCancel = nil
	}
}
