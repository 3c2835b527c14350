//go:build windows

package progress

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableWindowsANSI turns on virtual terminal processing so the mpb bars
// can move the cursor.
func enableWindowsANSI(f *os.File) {
	handle := windows.Handle(f.Fd())
	var mode uint32
	if err := windows.GetConsoleMode(handle, &mode); err == nil {
		const enableVirtualTerminalProcessing = 0x0004
		_ = windows.SetConsoleMode(handle, mode|enableVirtualTerminalProcessing)
	}
}
