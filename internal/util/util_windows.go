//go:build windows

package util

import (
	"log/slog"
	"os"
	"slices"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetConsoleWindow = kernel32.NewProc("GetConsoleWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procFreeConsole      = kernel32.NewProc("FreeConsole")
)

// IsRunFromGUI reports whether padbridge.exe was started from Explorer or
// without a console.
func IsRunFromGUI() bool {
	hwnd, _, _ := procGetConsoleWindow.Call()
	parent := getParentProcessName()
	slog.Debug("startup parent", "parent", parent, "console", hwnd != 0)

	switch {
	case hwnd == 0:
		return true
	case isCliProcess(parent):
		return false
	default:
		return strings.EqualFold(parent, "explorer.exe")
	}
}

// HideConsoleWindow detaches from the console so a double-clicked server
// keeps running in the background.
func HideConsoleWindow() {
	hwnd, _, _ := procGetConsoleWindow.Call()
	if hwnd == 0 {
		slog.Debug("no console window to hide")
		return
	}

	_, _, _ = procShowWindow.Call(hwnd, windows.SW_HIDE)
	_, _, _ = procFreeConsole.Call()
}

type procEntry struct {
	parent uint32
	exe    string
}

// getParentProcessName walks one process snapshot and returns the executable
// name of the parent of this process, or "" when it cannot be found.
func getParentProcessName() string {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(snapshot)

	procs := map[uint32]procEntry{}
	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err = windows.Process32First(snapshot, &pe); err == nil; err = windows.Process32Next(snapshot, &pe) {
		procs[pe.ProcessID] = procEntry{parent: pe.ParentProcessID, exe: windows.UTF16ToString(pe.ExeFile[:])}
	}

	self, ok := procs[uint32(os.Getpid())]
	if !ok || self.parent == 0 {
		return ""
	}
	return procs[self.parent].exe
}

var terminalProcesses = []string{
	"cmd.exe",
	"powershell.exe",
	"pwsh.exe",
	"wt.exe",
	"conhost.exe",
	"windowsterminal.exe",
}

func isCliProcess(name string) bool {
	return slices.ContainsFunc(terminalProcesses, func(p string) bool {
		return strings.EqualFold(p, name)
	})
}
