// Package notify decouples one-time-code delivery from the issuing path.
// Messages are handed to a buffered dispatcher and sent on a background
// goroutine; a slow or failing transport can never block or fail the
// operation that issued the code. Failures are reported through a callback
// (typically an audit emit) and otherwise swallowed.
package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBufferFull is reported to the failure callback when a message is
// discarded because the delivery buffer is saturated.
var ErrBufferFull = errors.New("delivery buffer full")

// Message is one code delivery.
type Message struct {
	Destination string
	Code        string
	Purpose     string
	UserID      string
}

// Sender is the transport half, implemented by the host's notifier.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to the [Sender] interface.
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
}

// Dispatcher forwards messages to the sender off the request path. Enqueue
// never blocks; when the buffer is full the message is dropped and counted,
// since the recovery path (resend) always exists.
type Dispatcher struct {
	sender    Sender
	onFailure func(Message, error)
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts the delivery goroutine. A disabled config or nil
// sender returns a nil dispatcher; all methods are nil-safe.
func NewDispatcher(cfg Config, sender Sender, onFailure func(Message, error)) *Dispatcher {
	if !cfg.Enabled || sender == nil {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if onFailure == nil {
		onFailure = func(Message, error) {}
	}

	d := &Dispatcher{
		sender:    sender,
		onFailure: onFailure,
		ch:        make(chan Message, cfg.BufferSize),
		done:      make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.send(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(msg Message) {
	if err := d.sender.Send(context.Background(), msg); err != nil {
		d.onFailure(msg, err)
	}
}

// Enqueue hands a message to the background sender. It never blocks and never
// returns an error: delivery is best-effort by contract.
func (d *Dispatcher) Enqueue(msg Message) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- msg:
	case <-d.done:
	default:
		d.dropped.Add(1)
		d.onFailure(msg, ErrBufferFull)
	}
}

// Close drains queued messages and stops the delivery goroutine.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many messages were discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
