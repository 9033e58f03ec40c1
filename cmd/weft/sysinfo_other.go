//go:build !linux

package main

import "runtime"

func hostInfo() string {
	return runtime.GOOS + " " + runtime.GOARCH
}
