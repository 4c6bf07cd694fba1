package sim

import (
	"sync"

	"github.com/samcharles93/copyconf/pkg/memcpy"
)

// stream executes queued operations in order on its own goroutine.
type stream struct {
	id memcpy.Stream

	mu      sync.Mutex
	ops     chan func()
	stopped bool
	done    chan struct{}
}

func newStream(id memcpy.Stream) *stream {
	s := &stream{id: id, ops: make(chan func(), 64), done: make(chan struct{})}
	go s.loop()
	return s
}

func (s *stream) loop() {
	defer close(s.done)
	for op := range s.ops {
		op()
	}
}

// enqueue reports false once the stream has been stopped.
func (s *stream) enqueue(op func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.ops <- op
	return true
}

// wait returns after everything enqueued so far has run.
func (s *stream) wait() {
	barrier := make(chan struct{})
	if !s.enqueue(func() { close(barrier) }) {
		<-s.done
		return
	}
	<-barrier
}

func (s *stream) stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.ops)
	}
	s.mu.Unlock()
	<-s.done
}

func (r *Runtime) StreamCreate() (memcpy.Stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return memcpy.DefaultStream, memcpy.Fail("StreamCreate", memcpy.ErrorUnknown)
	}
	id := r.nextStream
	r.nextStream++
	r.streams[id] = newStream(id)
	return id, nil
}

func (r *Runtime) StreamDestroy(id memcpy.Stream) error {
	if id == memcpy.DefaultStream {
		return memcpy.Fail("StreamDestroy", memcpy.ErrorInvalidResourceHandle)
	}
	r.mu.Lock()
	s, ok := r.streams[id]
	if ok {
		delete(r.streams, id)
	}
	r.mu.Unlock()
	if !ok {
		return memcpy.Fail("StreamDestroy", memcpy.ErrorInvalidResourceHandle)
	}
	s.stop()
	return nil
}

func (r *Runtime) StreamSynchronize(id memcpy.Stream) error {
	s, err := r.stream("StreamSynchronize", id)
	if err != nil {
		return err
	}
	s.wait()
	return nil
}

// submit queues fn on stream id.
func (r *Runtime) submit(op string, id memcpy.Stream, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok || !s.enqueue(fn) {
		return memcpy.Fail(op, memcpy.ErrorInvalidResourceHandle)
	}
	return nil
}

func (r *Runtime) stream(op string, id memcpy.Stream) (*stream, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.streams[id]
	if !ok {
		return nil, memcpy.Fail(op, memcpy.ErrorInvalidResourceHandle)
	}
	return s, nil
}

// syncAll waits for every stream, the way a blocking call on the legacy
// default stream does.
func (r *Runtime) syncAll() {
	r.mu.Lock()
	streams := make([]*stream, 0, len(r.streams))
	for _, s := range r.streams {
		streams = append(streams, s)
	}
	r.mu.Unlock()
	for _, s := range streams {
		s.wait()
	}
}
