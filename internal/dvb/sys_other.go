//go:build !linux

package dvb

import "unsafe"

func sysOpen(string) (int, error) {
	return -1, ErrUnsupportedPlatform
}

func sysClose(int) error {
	return ErrUnsupportedPlatform
}

func sysIoctlPtr(int, uintptr, unsafe.Pointer) error {
	return ErrUnsupportedPlatform
}

func sysIoctlValue(int, uintptr, uintptr) error {
	return ErrUnsupportedPlatform
}

func transient(error) bool {
	return false
}
