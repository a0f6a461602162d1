//go:build wasm

package internal

import "sync"

var once sync.Once
var globalRuntime *Runtime

func GetRuntime() *Runtime {
	once.Do(func() {
		globalRuntime = NewRuntime(RuntimeOptions{})
	})

	return globalRuntime
}

func SetRuntime(r *Runtime) {
	once.Do(func() {})
	globalRuntime = r
}
