//go:build linux

package gpwait

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// platformFutex carries no extra state on Linux: the real kernel futex
// syscall operates directly on f.val's address.
type platformFutex struct{}

func (f *FutexWord) initPlatform() {}

const (
	futexWaitOp = 0 // FUTEX_WAIT
	futexWakeOp = 1 // FUTEX_WAKE
)

func (f *FutexWord) wait() {
	for {
		_, _, errno := unix.Syscall6(
			unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(&f.val)),
			uintptr(futexWaitOp),
			uintptr(armed),
			0, 0, 0,
		)
		switch errno {
		case 0:
			return
		case unix.EAGAIN:
			// The value had already changed before the kernel could put
			// us to sleep.
			return
		case unix.EINTR:
			continue
		default:
			// An OS primitive failing here is unrecoverable.
			panic("gpwait: unexpected futex(FUTEX_WAIT) errno: " + errno.Error())
		}
	}
}

func (f *FutexWord) wake() {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(&f.val)),
		uintptr(futexWakeOp),
		1, 0, 0, 0,
	)
}
