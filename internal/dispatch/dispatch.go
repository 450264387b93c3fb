package dispatch

import (
	"context"
	"fmt"
	"time"
)

// Request is one outbound notification.
type Request struct {
	ChatID    string
	Text      string
	ParseMode string
}

// Ack acknowledges a delivery. Attempts counts every transport call made
// for the request, including the successful one; it is also populated on
// the failure path so callers can observe how far the retry loop got.
type Ack struct {
	MessageID int64
	Attempts  int
}

// Transport delivers one message to the external messaging endpoint. The
// transport decides the error kind; callers never inspect status codes or
// message text.
type Transport interface {
	Deliver(ctx context.Context, req Request) (Ack, error)
}

// RateLimitedError signals the endpoint rejected the send because of its
// own rate ceiling (HTTP 429 class). These are the only failures the
// dispatcher retries.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("dispatch: rate limited by endpoint, retry after %s", e.RetryAfter)
	}
	return "dispatch: rate limited by endpoint"
}

// TransportError is any other delivery failure: network error, timeout, or
// a non-rate-limit rejection. Never retried.
type TransportError struct {
	Status int
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("dispatch: transport error (%d): %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("dispatch: transport error: %s", e.Reason)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
