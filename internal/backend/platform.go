package backend

import "runtime"

func runtimeIsWindows() bool {
	return runtime.GOOS == "windows"
}
