// Package broadcast fans one byte stream out to several independent readers.
//
// A Broadcaster reads its source exactly once. Each chunk is appended to a
// log that every Subscriber walks with its own cursor, so a slow consumer
// (a full DOM parse) never holds back a fast one (an early-terminating head
// scan), and a consumer that stops early simply stops reading.
package broadcast

import (
	"context"
	"errors"
	"io"
	"sync"
)

// chunkSize is the size of each read from the source.
const chunkSize = 32 * 1024

// ErrClosed is returned by Publish when the broadcaster was already used.
var ErrClosed = errors.New("broadcaster already published")

// Broadcaster republishes a single reader to any number of subscribers.
type Broadcaster struct {
	mu        sync.Mutex
	chunks    [][]byte
	notify    chan struct{}
	done      chan struct{}
	err       error
	finished  bool
	published bool
}

// New returns an idle Broadcaster.
func New() *Broadcaster {
	return &Broadcaster{
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Subscribe returns a reader positioned at the first chunk. Subscribing after
// Publish has started still replays everything published so far.
func (b *Broadcaster) Subscribe() *Subscriber {
	return &Subscriber{b: b}
}

// Publish reads src to the end, publishing every chunk. It returns the read
// error, if any, after the completion signal has fired. Publish may only be
// called once.
func (b *Broadcaster) Publish(ctx context.Context, src io.Reader) error {
	b.mu.Lock()
	if b.published {
		b.mu.Unlock()
		return ErrClosed
	}
	b.published = true
	b.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			b.finish(err)
			return err
		}

		buf := make([]byte, chunkSize)
		n, err := src.Read(buf)
		if n > 0 {
			b.append(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			b.finish(nil)
			return nil
		}
		if err != nil {
			b.finish(err)
			return err
		}
	}
}

func (b *Broadcaster) append(chunk []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
	close(b.notify)
	b.notify = make(chan struct{})
}

func (b *Broadcaster) finish(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.err = err
	b.finished = true
	close(b.notify)
	close(b.done)
}

// Done is closed once the whole source has been published or reading failed.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

// Err returns the source read error after Done is closed.
func (b *Broadcaster) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Subscriber is one consumer's cursor over the published chunks.
// A Subscriber must not be used from more than one goroutine.
type Subscriber struct {
	b    *Broadcaster
	next int
}

// Next returns the next chunk, blocking until it is published. It returns
// io.EOF after the last chunk, or the source error if reading failed.
// Returned chunks are shared and must not be modified.
func (s *Subscriber) Next(ctx context.Context) ([]byte, error) {
	for {
		s.b.mu.Lock()
		if s.next < len(s.b.chunks) {
			chunk := s.b.chunks[s.next]
			s.next++
			s.b.mu.Unlock()
			return chunk, nil
		}
		if s.b.finished {
			err := s.b.err
			s.b.mu.Unlock()
			if err == nil {
				err = io.EOF
			}
			return nil, err
		}
		wait := s.b.notify
		s.b.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Reader adapts the subscriber to io.Reader.
func (s *Subscriber) Reader(ctx context.Context) io.Reader {
	return &subscriberReader{ctx: ctx, s: s}
}

type subscriberReader struct {
	ctx     context.Context //nolint:containedctx // io.Reader has no context parameter
	s       *Subscriber
	pending []byte
}

func (r *subscriberReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(r.pending) == 0 {
		chunk, err := r.s.Next(r.ctx)
		if err != nil {
			return 0, err
		}
		r.pending = chunk
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
