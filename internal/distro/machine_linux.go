//go:build linux

package distro

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Machine returns the kernel's machine hardware name, as printed by uname -m.
func Machine() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
