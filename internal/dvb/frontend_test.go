package dvb

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
	"unsafe"
)

// recordingSyscalls logs the order of device calls. ioctlPtr blocks until
// release is closed.
type recordingSyscalls struct {
	mu      sync.Mutex
	calls   []string
	entered chan struct{}
	release chan struct{}
}

func (r *recordingSyscalls) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingSyscalls) syscalls() syscalls {
	return syscalls{
		ioctlPtr: func(int, uintptr, unsafe.Pointer) error {
			r.record("ioctl start")
			close(r.entered)
			<-r.release
			r.record("ioctl end")
			return nil
		},
		ioctlValue: func(int, uintptr, uintptr) error {
			r.record("ioctl value")
			return nil
		},
		close: func(int) error {
			r.record("close")
			return nil
		},
	}
}

func newTestFrontend(sys syscalls) *Frontend {
	return &Frontend{
		path:    DevicePath(0, 0),
		fd:      3,
		timeout: DefaultIoctlTimeout,
		sys:     sys,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestFrontend_CloseWaitsForRequest(t *testing.T) {
	rec := &recordingSyscalls{entered: make(chan struct{}), release: make(chan struct{})}
	f := newTestFrontend(rec.syscalls())

	statusDone := make(chan error, 1)
	go func() {
		_, err := f.ReadStatus()
		statusDone <- err
	}()
	<-rec.entered

	closeDone := make(chan error, 1)
	go func() {
		closeDone <- f.Close()
	}()

	select {
	case <-closeDone:
		t.Fatal("Close returned while a request was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(rec.release)
	if err := <-statusDone; err != nil {
		t.Fatalf("ReadStatus() error: %v", err)
	}
	if err := <-closeDone; err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	want := []string{"ioctl start", "ioctl end", "close"}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", rec.calls, want)
		}
	}
}

func TestFrontend_Closed(t *testing.T) {
	rec := &recordingSyscalls{}
	f := newTestFrontend(rec.syscalls())

	if err := f.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	if err := f.SetTone(ToneOff); !errors.Is(err, ErrClosed) {
		t.Errorf("SetTone() after Close error = %v, want ErrClosed", err)
	}
	if _, err := f.ReadStatus(); !errors.Is(err, ErrClosed) {
		t.Errorf("ReadStatus() after Close error = %v, want ErrClosed", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "close" {
		t.Errorf("calls = %v, want a single close", rec.calls)
	}
}
