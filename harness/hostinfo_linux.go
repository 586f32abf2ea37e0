//go:build linux

package harness

import "golang.org/x/sys/unix"

func fillKernel(h *Host) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return
	}

	h.KernelRelease = unix.ByteSliceToString(uts.Release[:])
	h.KernelVersion = unix.ByteSliceToString(uts.Version[:])
	h.Machine = unix.ByteSliceToString(uts.Machine[:])
}
