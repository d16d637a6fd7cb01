//go:build !linux && !darwin && !windows

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(
		os.Stderr,
		"listeners is only supported on Linux, macOS, and Windows.\n\nIf you are seeing this message, you are attempting to build or run listeners on a platform whose kernel socket tables it cannot read.\n\nPlease use Linux, macOS, or Windows to build and run listeners.",
	)
	os.Exit(1)
}
