package perworld

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/sealdice/perworld/perworld/types"
)

// hookRegistry keeps handlers sorted by priority, highest first. Equal
// priorities run in registration order.
type hookRegistry[T any] struct {
	mu    sync.RWMutex
	seq   atomic.Uint64
	items []hookEntry[T]
}

type hookEntry[T any] struct {
	id       types.HookHandle
	name     string
	priority types.HookPriority
	handler  T
}

func (r *hookRegistry[T]) register(name string, priority types.HookPriority, handler T) (types.HookHandle, error) {
	if isNilHandler(handler) {
		return "", errors.New("hook handler must not be nil")
	}

	entry := hookEntry[T]{
		id:       types.HookHandle(fmt.Sprintf("hook-%d", r.seq.Add(1))),
		name:     name,
		priority: priority,
		handler:  handler,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	insertAt := len(r.items)
	for i, existing := range r.items {
		if entry.priority > existing.priority {
			insertAt = i
			break
		}
	}
	r.items = append(r.items, hookEntry[T]{})
	copy(r.items[insertAt+1:], r.items[insertAt:])
	r.items[insertAt] = entry

	return entry.id, nil
}

// isNilHandler 泛型参数里的 nil func 装箱后不等于 nil，需要反射判断
func isNilHandler(handler any) bool {
	if handler == nil {
		return true
	}
	v := reflect.ValueOf(handler)
	switch v.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func (r *hookRegistry[T]) unregister(handle types.HookHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, entry := range r.items {
		if entry.id == handle {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true
		}
	}
	return false
}

// snapshot copies the handler list so dispatch runs without the lock held.
func (r *hookRegistry[T]) snapshot() []hookEntry[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.items) == 0 {
		return nil
	}
	out := make([]hookEntry[T], len(r.items))
	copy(out, r.items)
	return out
}
