//go:build linux

package main

import "golang.org/x/sys/unix"

// hostInfo returns "sysname release machine" for the benchmark banner.
func hostInfo() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "unknown"
	}
	return cstr(uts.Sysname[:]) + " " + cstr(uts.Release[:]) + " " + cstr(uts.Machine[:])
}

func cstr(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
