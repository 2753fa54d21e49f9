// Package test holds helpers shared by the mocks and tests of the other packages.
package test

import (
	"runtime"
	"sync"
	"testing"
)

// CallWatcher records the calls made to a mock, keyed by the fully qualified name of the calling method.
type CallWatcher struct {
	mu            sync.Mutex
	functionCalls map[string][][]interface{}
}

func NewCallWatcher() *CallWatcher {
	return &CallWatcher{functionCalls: make(map[string][][]interface{})}
}

func (w *CallWatcher) GetCall(funcName string) [][]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.functionCalls[funcName]
}

func (w *CallWatcher) GetCallCount(funcName string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.functionCalls[funcName])
}

func (w *CallWatcher) AddCall(args ...interface{}) {
	pc := make([]uintptr, 15)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])
	frame, _ := frames.Next()
	funcName := frame.Func.Name()

	w.mu.Lock()
	defer w.mu.Unlock()
	w.functionCalls[funcName] = append(w.functionCalls[funcName], args)
}

// VerifyCount fails t when funcName was not called exactly want times.
func VerifyCount(t *testing.T, w *CallWatcher, funcName string, want int) {
	t.Helper()
	if got := w.GetCallCount(funcName); got != want {
		t.Errorf("unexpected call count for %s got=%d want=%d", funcName, got, want)
	}
}
