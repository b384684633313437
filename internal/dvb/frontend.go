package dvb

import (
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"
	"unsafe"
)

// WithLogger sets the logger for the frontend
func WithLogger(logger *slog.Logger) func(f *Frontend) {
	return func(f *Frontend) {
		f.logger = logger.With(slog.String("frontend", f.path))
	}
}

// WithIoctlTimeout sets the retry budget for interrupted or busy requests
func WithIoctlTimeout(timeout time.Duration) func(f *Frontend) {
	return func(f *Frontend) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// Frontend is an open /dev/dvb/adapterN/frontendM device. A Frontend must be
// driven by one goroutine at a time; only Close may be called concurrently,
// and it waits for an in-flight request to finish before releasing the fd.
type Frontend struct {
	path     string
	adapter  int
	frontend int
	timeout  time.Duration

	mu     sync.RWMutex
	fd     int
	closed bool
	sys    syscalls

	logger *slog.Logger
}

// syscalls is the device I/O a Frontend performs on its fd.
type syscalls struct {
	ioctlPtr   func(fd int, req uintptr, arg unsafe.Pointer) error
	ioctlValue func(fd int, req uintptr, value uintptr) error
	close      func(fd int) error
}

var deviceSyscalls = syscalls{
	ioctlPtr:   sysIoctlPtr,
	ioctlValue: sysIoctlValue,
	close:      sysClose,
}

// DevicePath returns the character device of a frontend.
func DevicePath(adapter, frontend int) string {
	return fmt.Sprintf("/dev/dvb/adapter%d/frontend%d", adapter, frontend)
}

// Open opens the frontend for read/write access.
func Open(adapter, frontend int, options ...func(f *Frontend)) (*Frontend, error) {
	f := Frontend{
		path:     DevicePath(adapter, frontend),
		adapter:  adapter,
		frontend: frontend,
		timeout:  DefaultIoctlTimeout,
		sys:      deviceSyscalls,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&f)
	}

	fd, err := sysOpen(f.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", f.path, err)
	}
	f.fd = fd

	return &f, nil
}

func (f *Frontend) Path() string {
	return f.path
}

func (f *Frontend) Adapter() int {
	return f.adapter
}

// Index returns the frontend number within its adapter.
func (f *Frontend) Index() int {
	return f.frontend
}

// Close releases the device. It is safe to call Close more than once.
func (f *Frontend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	return f.sys.close(f.fd)
}

func (f *Frontend) ioctl(op string, req uintptr, arg unsafe.Pointer) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return &IoctlError{Op: op, Err: ErrClosed}
	}

	if err := retry(f.timeout, transient, func() error {
		return f.sys.ioctlPtr(f.fd, req, arg)
	}); err != nil {
		return &IoctlError{Op: op, Err: err}
	}
	return nil
}

func (f *Frontend) ioctlValue(op string, req uintptr, value uintptr) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return &IoctlError{Op: op, Err: ErrClosed}
	}

	if err := retry(f.timeout, transient, func() error {
		return f.sys.ioctlValue(f.fd, req, value)
	}); err != nil {
		return &IoctlError{Op: op, Err: err}
	}
	return nil
}

// Info queries FE_GET_INFO.
func (f *Frontend) Info() (Info, error) {
	var raw frontendInfo
	if err := f.ioctl("FE_GET_INFO", feGetInfo, unsafe.Pointer(&raw)); err != nil {
		return Info{}, err
	}

	return Info{
		Name:                cString(raw.Name[:]),
		FrequencyMin:        raw.FrequencyMin,
		FrequencyMax:        raw.FrequencyMax,
		FrequencyStepSize:   raw.FrequencyStepSize,
		FrequencyTolerance:  raw.FrequencyTolerance,
		SymbolRateMin:       raw.SymbolRateMin,
		SymbolRateMax:       raw.SymbolRateMax,
		SymbolRateTolerance: raw.SymbolRateTolerance,
		Caps:                raw.Caps,
	}, nil
}

// SetProperties issues one FE_SET_PROPERTY with all props, in order.
func (f *Frontend) SetProperties(props ...Property) error {
	if len(props) == 0 {
		return nil
	}

	raw := make([]dtvProperty, len(props))
	for i, p := range props {
		raw[i].Cmd = uint32(p.Cmd)
		raw[i].setData(p.Data)
	}

	seq := dtvProperties{Num: uint32(len(raw)), Props: &raw[0]}
	err := f.ioctl("FE_SET_PROPERTY", feSetProperty, unsafe.Pointer(&seq))
	runtime.KeepAlive(raw)

	if err != nil {
		f.logger.Debug("set property failed", slog.Any("props", props), slog.String("error", err.Error()))
	}
	return err
}

// GetProperties reads back the named properties in one FE_GET_PROPERTY.
func (f *Frontend) GetProperties(cmds ...Cmd) ([]Property, error) {
	if len(cmds) == 0 {
		return nil, nil
	}

	raw := make([]dtvProperty, len(cmds))
	for i, c := range cmds {
		raw[i].Cmd = uint32(c)
	}

	seq := dtvProperties{Num: uint32(len(raw)), Props: &raw[0]}
	err := f.ioctl("FE_GET_PROPERTY", feGetProperty, unsafe.Pointer(&seq))
	runtime.KeepAlive(raw)
	if err != nil {
		return nil, err
	}

	props := make([]Property, len(raw))
	for i := range raw {
		props[i] = Property{Cmd: Cmd(raw[i].Cmd), Data: raw[i].data()}
	}
	return props, nil
}

// ReadStatus queries FE_READ_STATUS.
func (f *Frontend) ReadStatus() (Status, error) {
	var status uint32
	if err := f.ioctl("FE_READ_STATUS", feReadStatus, unsafe.Pointer(&status)); err != nil {
		return 0, err
	}
	return Status(status), nil
}

// NextEvent dequeues one frontend event. When the queue is empty the call
// fails once the retry budget is spent.
func (f *Frontend) NextEvent() (Event, error) {
	var ev frontendEvent
	if err := f.ioctl("FE_GET_EVENT", feGetEvent, unsafe.Pointer(&ev)); err != nil {
		return Event{}, err
	}
	return Event{Status: Status(ev.Status), Frequency: ev.Frequency}, nil
}

func (f *Frontend) SetVoltage(v Voltage) error {
	return f.ioctlValue("FE_SET_VOLTAGE", feSetVoltage, uintptr(v))
}

func (f *Frontend) SetTone(t Tone) error {
	return f.ioctlValue("FE_SET_TONE", feSetTone, uintptr(t))
}

// SendDiseqc sends a DiSEqC master command of 3 to 6 bytes.
func (f *Frontend) SendDiseqc(msg []byte) error {
	if len(msg) < 3 || len(msg) > 6 {
		return fmt.Errorf("invalid diseqc message length %d", len(msg))
	}

	var cmd diseqcMasterCmd
	copy(cmd.Msg[:], msg)
	cmd.MsgLen = uint8(len(msg))
	return f.ioctl("FE_DISEQC_SEND_MASTER_CMD", feDiseqcSendMasterCmd, unsafe.Pointer(&cmd))
}
