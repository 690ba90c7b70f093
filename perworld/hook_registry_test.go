package perworld

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sealdice/perworld/perworld/types"
)

func TestHookRegistryPriorityOrder(t *testing.T) {
	var r hookRegistry[types.EventHook]
	as := assert.New(t)
	order := []string{}

	makeHook := func(tag string) types.EventHook {
		return func(*types.PlayerEvent) types.HookResult {
			order = append(order, tag)
			return types.HookResultContinue
		}
	}

	_, err := r.register("low", types.HookPriorityLow, makeHook("low"))
	as.NoError(err)
	_, err = r.register("high", types.HookPriorityHigh, makeHook("high"))
	as.NoError(err)
	_, err = r.register("normal-1", types.HookPriorityNormal, makeHook("normal-1"))
	as.NoError(err)
	_, err = r.register("normal-2", types.HookPriorityNormal, makeHook("normal-2"))
	as.NoError(err)

	for _, entry := range r.snapshot() {
		entry.handler(&types.PlayerEvent{})
	}

	as.Equal([]string{"high", "normal-1", "normal-2", "low"}, order)
}

func TestHookRegistryUnregister(t *testing.T) {
	var r hookRegistry[types.EventHook]
	as := assert.New(t)

	handle, err := r.register("test", types.HookPriorityNormal, func(*types.PlayerEvent) types.HookResult {
		return types.HookResultContinue
	})
	as.NoError(err)
	as.Len(r.snapshot(), 1)

	as.True(r.unregister(handle), "expected unregister to succeed")
	as.False(r.unregister(handle), "unregistering twice should fail")
	as.Nil(r.snapshot())
}

func TestHookRegistryRejectsNil(t *testing.T) {
	as := assert.New(t)
	var r hookRegistry[types.EventHook]

	_, err := r.register("nil", types.HookPriorityNormal, nil)
	as.Error(err)

	var hook types.EventHook
	_, err = r.register("typed-nil", types.HookPriorityNormal, hook)
	as.Error(err)
	as.Nil(r.snapshot())
}
