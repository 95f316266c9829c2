package player

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/evhagen/spindle/internal/app/playback"
)

// Client performs the request/reply round trips against a Worker. Safe for
// use from one goroutine at a time; the control loop is its only caller.
type Client struct {
	requests chan<- any
	stopped  <-chan struct{}
}

// Load asks the worker to build an engine for path, releasing the current
// one. It blocks until the worker is free: an in-flight track must first
// observe a stop and wind down before the request is accepted. ctx covers
// the wait for acceptance only; an accepted request always collects its
// reply.
func (c *Client) Load(ctx context.Context, path string) error {
	reply := make(chan error, 1)
	if err := c.send(ctx, loadRequest{path: path, reply: reply}); err != nil {
		return err
	}
	return <-reply
}

// Prepare starts the loaded track and returns its stream-state handle. The
// handle arrives before the worker begins streaming, so the caller can set
// the initial playing/paused state while the track plays out. ctx covers
// the wait for acceptance only: the reply carries the stream's only state
// handle, and abandoning it would leave nobody able to stop the engine.
func (c *Client) Prepare(ctx context.Context) (*playback.StreamState, error) {
	reply := make(chan prepareReply, 1)
	if err := c.send(ctx, prepareRequest{reply: reply}); err != nil {
		return nil, err
	}
	r := <-reply
	return r.state, r.err
}

// send hands req to the worker. The reply is guaranteed once the request
// has been accepted, because the worker serves a request completely before
// checking its context again.
func (c *Client) send(ctx context.Context, req any) error {
	select {
	case c.requests <- req:
		return nil
	case <-c.stopped:
		return ErrClosed
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "send request")
	}
}
