package exception

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/mezonai/starledger/logx"
	"github.com/mezonai/starledger/monitoring"
)

// SafeGo runs fn in a goroutine, logging and counting any panic instead of crashing.
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverAndLog(name, false)
		fn()
	}()
}

// SafeGoWithPanic is SafeGo for goroutines the process cannot live without.
func SafeGoWithPanic(name string, fn func()) {
	go func() {
		defer recoverAndLog(name, true)
		fn()
	}()
}

func recoverAndLog(name string, fatal bool) {
	if r := recover(); r != nil {
		monitoring.IncreasePanicCount()
		logx.Error("PANIC", fmt.Sprintf("Panic in %s: %v\n%s", name, r, debug.Stack()))
		if fatal {
			os.Exit(1)
		}
	}
}
