package hub

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/smartbotkit/lwp/pkg/lwp"
)

// fakeTransport records every frame written to it.
type fakeTransport struct {
	mu      sync.Mutex
	frames  [][]byte
	onWrite func([]byte) error
	closed  bool
}

func (t *fakeTransport) Write(p []byte) error {
	frame := append([]byte(nil), p...)
	t.mu.Lock()
	t.frames = append(t.frames, frame)
	fn := t.onWrite
	t.mu.Unlock()
	if fn != nil {
		return fn(frame)
	}
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

func (t *fakeTransport) frame(i int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames[i]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestQueueSerializesRequests(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0, tr, 0, 0, zap.NewNop())
	defer q.Close()

	var mu sync.Mutex
	var order []int
	handler := func(i int) Handler {
		return func(resp lwp.ResponseBody, err error) {
			if err != nil {
				t.Errorf("request %d failed: %v", i, err)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}
	}
	q.Send(&lwp.LockStatusRequest{}, handler(0))
	q.Send(&lwp.LockStatusRequest{}, handler(1))

	waitFor(t, "first transmit", func() bool { return tr.count() == 1 })
	// The second request must hold until the first resolves.
	time.Sleep(20 * time.Millisecond)
	if tr.count() != 1 {
		t.Fatalf("transmitted %d frames before the first response", tr.count())
	}

	if !q.HandleResponse(&lwp.LockStatusResponse{Locked: true}) {
		t.Fatal("response not consumed by the in-flight request")
	}
	waitFor(t, "second transmit", func() bool { return tr.count() == 2 })
	if !q.HandleResponse(&lwp.LockStatusResponse{Locked: true}) {
		t.Fatal("second response not consumed")
	}

	waitFor(t, "both resolutions", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	})
	mu.Lock()
	defer mu.Unlock()
	if order[0] != 0 || order[1] != 1 {
		t.Fatalf("resolution order = %v", order)
	}
}

func TestQueueExactlyOnce(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0, tr, 0, 0, zap.NewNop())
	defer q.Close()

	results := make(chan error, 4)
	q.Send(&lwp.LockStatusRequest{}, func(resp lwp.ResponseBody, err error) {
		results <- err
	})
	waitFor(t, "transmit", func() bool { return tr.count() == 1 })

	if !q.HandleResponse(&lwp.LockStatusResponse{}) {
		t.Fatal("first response must be consumed")
	}
	if q.HandleResponse(&lwp.LockStatusResponse{}) {
		t.Fatal("duplicate response must not be consumed")
	}

	if err := <-results; err != nil {
		t.Fatalf("handler error = %v", err)
	}
	select {
	case <-results:
		t.Fatal("handler invoked more than once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestQueueNonMatchingResponseIgnored(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0, tr, 0, 0, zap.NewNop())
	defer q.Close()

	q.Send(&lwp.LockStatusRequest{}, nil)
	waitFor(t, "transmit", func() bool { return tr.count() == 1 })

	if q.HandleResponse(&lwp.ActionResponse{Action: lwp.ActionDisconnect}) {
		t.Fatal("unrelated response must not be consumed")
	}
	if !q.HandleResponse(&lwp.LockStatusResponse{}) {
		t.Fatal("matching response must still resolve the request")
	}
}

func TestQueueFireAndForget(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0, tr, 0, 0, zap.NewNop())
	defer q.Close()

	done := make(chan error, 1)
	q.Send(&lwp.ActionRequest{Action: lwp.ActionSwitchOff}, func(resp lwp.ResponseBody, err error) {
		if resp != nil {
			t.Errorf("fire-and-forget resolved with a response: %v", resp)
		}
		done <- err
	})
	if err := <-done; err != nil {
		t.Fatalf("handler error = %v", err)
	}

	// The queue must move on without any inbound traffic.
	q.Send(&lwp.ActionRequest{Action: lwp.ActionSwitchOff}, nil)
	waitFor(t, "second transmit", func() bool { return tr.count() == 2 })
}

func TestQueueTimeout(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0, tr, 10*time.Millisecond, 0, zap.NewNop())
	defer q.Close()

	done := make(chan error, 1)
	q.Send(&lwp.LockStatusRequest{}, func(resp lwp.ResponseBody, err error) {
		done <- err
	})
	if err := <-done; !errors.Is(err, ErrResponseTimeout) {
		t.Fatalf("err = %v, want ErrResponseTimeout", err)
	}

	// A late response finds no in-flight request.
	if q.HandleResponse(&lwp.LockStatusResponse{}) {
		t.Fatal("late response must not be consumed")
	}
}

func TestQueueCloseFailsPending(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0, tr, 0, 0, zap.NewNop())

	errs := make(chan error, 3)
	collect := func(resp lwp.ResponseBody, err error) { errs <- err }

	q.Send(&lwp.LockStatusRequest{}, collect) // transmits, waits forever
	waitFor(t, "transmit", func() bool { return tr.count() == 1 })
	q.Send(&lwp.LockStatusRequest{}, collect) // still queued

	q.Close()

	for i := 0; i < 2; i++ {
		if err := <-errs; !errors.Is(err, ErrTransportUnavailable) {
			t.Fatalf("err = %v, want ErrTransportUnavailable", err)
		}
	}

	// Submissions after close fail the same way.
	q.Send(&lwp.LockStatusRequest{}, collect)
	if err := <-errs; !errors.Is(err, ErrTransportUnavailable) {
		t.Fatalf("post-close err = %v, want ErrTransportUnavailable", err)
	}
	if tr.count() != 1 {
		t.Fatalf("transmitted %d frames, want 1", tr.count())
	}
}

func TestQueueWriteError(t *testing.T) {
	failure := errors.New("characteristic gone")
	tr := &fakeTransport{onWrite: func([]byte) error { return failure }}
	q := NewTransmissionQueue(0, tr, 0, 0, zap.NewNop())
	defer q.Close()

	done := make(chan error, 1)
	q.Send(&lwp.LockStatusRequest{}, func(resp lwp.ResponseBody, err error) {
		done <- err
	})
	if err := <-done; !errors.Is(err, failure) {
		t.Fatalf("err = %v, want wrapped write failure", err)
	}
	if q.HandleResponse(&lwp.LockStatusResponse{}) {
		t.Fatal("failed request must not stay armed for correlation")
	}
}

func TestQueueEncodesHubID(t *testing.T) {
	tr := &fakeTransport{}
	q := NewTransmissionQueue(0x03, tr, 0, 0, zap.NewNop())
	defer q.Close()

	q.Send(&lwp.ActionRequest{Action: lwp.ActionDisconnect}, nil)
	waitFor(t, "transmit", func() bool { return tr.count() == 1 })
	frame := tr.frame(0)
	want := []byte{0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if frame[i] != want[i] {
			t.Fatalf("frame = %#v, want %#v", frame, want)
		}
	}
}
