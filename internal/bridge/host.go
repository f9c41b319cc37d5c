package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/internal/notifier"
)

// ErrClosed is returned by calls made after the browser disconnected.
var ErrClosed = errors.New("browser bridge closed")

// DefaultCallTimeout bounds a call that carries no deadline of its own.
const DefaultCallTimeout = 5 * time.Second

// Host exchanges envelopes with the browser extension over r and w.
//
// Inbound events are handed to the sink from a dedicated goroutine through an
// unbounded queue, so a sink that blocks (for example while it waits on a
// rule engine call answered over this same connection) never stalls the
// reader.
type Host struct {
	r    io.Reader
	w    io.Writer
	sink func(Envelope)

	writeMu sync.Mutex

	mu      sync.Mutex
	calls   map[string]chan Envelope
	queue   []Envelope
	wake    chan struct{}
	closed  bool
	closeCh chan struct{}
}

// NewHost creates a host. sink receives every inbound envelope except call
// results, one at a time and in arrival order.
func NewHost(r io.Reader, w io.Writer, sink func(Envelope)) *Host {
	return &Host{
		r:       r,
		w:       w,
		sink:    sink,
		calls:   make(map[string]chan Envelope),
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
	}
}

// Run reads until the browser disconnects or ctx is cancelled. A clean
// disconnect returns nil. When ctx ends, r is closed if it is an io.Closer
// so the reader goroutine can exit; Run does not wait for it.
func (h *Host) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go func() { readErr <- h.readLoop() }()

	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		h.forward()
	}()

	var err error
	select {
	case err = <-readErr:
	case <-ctx.Done():
		if c, ok := h.r.(io.Closer); ok {
			_ = c.Close()
		}
	}
	h.shutdown()
	<-forwardDone

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

func (h *Host) readLoop() error {
	for {
		env, err := ReadEnvelope(h.r)
		if err != nil {
			return err
		}
		if env.Kind == KindResult {
			h.resolve(env)
			continue
		}
		h.enqueue(env)
	}
}

func (h *Host) resolve(env Envelope) {
	h.mu.Lock()
	ch, ok := h.calls[env.ID]
	delete(h.calls, env.ID)
	h.mu.Unlock()
	if !ok {
		logger.Debug("Dropping result for unknown call", "id", env.ID)
		return
	}
	ch <- env
}

func (h *Host) enqueue(env Envelope) {
	h.mu.Lock()
	h.queue = append(h.queue, env)
	h.mu.Unlock()
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

func (h *Host) forward() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 {
			closed := h.closed
			h.mu.Unlock()
			if closed {
				return
			}
			select {
			case <-h.wake:
			case <-h.closeCh:
			}
			continue
		}
		env := h.queue[0]
		h.queue = h.queue[1:]
		h.mu.Unlock()

		if h.sink != nil {
			h.sink(env)
		}
	}
}

func (h *Host) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.queue = nil
	close(h.closeCh)
	for id, ch := range h.calls {
		close(ch)
		delete(h.calls, id)
	}
}

// Done is closed once the browser has disconnected.
func (h *Host) Done() <-chan struct{} {
	return h.closeCh
}

func (h *Host) send(env Envelope) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	return WriteEnvelope(h.w, env)
}

// Call sends a request and waits for the matching result.
func (h *Host) Call(ctx context.Context, env Envelope) (Envelope, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCallTimeout)
		defer cancel()
	}

	env.ID = uuid.NewString()
	ch := make(chan Envelope, 1)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return Envelope{}, ErrClosed
	}
	h.calls[env.ID] = ch
	h.mu.Unlock()

	forget := func() {
		h.mu.Lock()
		delete(h.calls, env.ID)
		h.mu.Unlock()
	}

	if err := h.send(env); err != nil {
		forget()
		return Envelope{}, fmt.Errorf("failed to send %s: %w", env.Kind, err)
	}

	select {
	case res, ok := <-ch:
		if !ok {
			return Envelope{}, ErrClosed
		}
		if res.Error != "" {
			return res, fmt.Errorf("%s failed: %s", env.Kind, res.Error)
		}
		return res, nil
	case <-ctx.Done():
		forget()
		return Envelope{}, fmt.Errorf("%s: %w", env.Kind, ctx.Err())
	}
}

// Reply answers a message envelope.
func (h *Host) Reply(id string, resp models.Response) error {
	return h.send(Envelope{Kind: KindResponse, ID: id, Response: &resp})
}

// Notify asks the extension to show a notification. It does not wait for
// the browser to display it.
func (h *Host) Notify(ctx context.Context, n notifier.Notification) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return h.send(Envelope{Kind: KindNotify, Notification: &n})
}
