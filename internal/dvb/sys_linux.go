//go:build linux

package dvb

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

func sysOpen(path string) (int, error) {
	// Non-blocking so that FE_GET_EVENT returns EAGAIN instead of waiting
	// forever; the retry budget bounds the wait instead.
	return unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
}

func sysClose(fd int) error {
	return unix.Close(fd)
}

func sysIoctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func sysIoctlValue(fd int, req uintptr, value uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, value)
	if errno != 0 {
		return errno
	}
	return nil
}

func transient(err error) bool {
	return errors.Is(err, unix.EINTR) || errors.Is(err, unix.EAGAIN)
}
