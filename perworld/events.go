package perworld

import (
	"github.com/sealdice/perworld/perworld/types"
)

func (pw *PerWorld) registerListeners() {
	// 内置监听器优先级最低，其他观察者先看到事件
	_, _ = pw.hooks.register("perworld", types.HookPriorityMonitor, func(evt *types.PlayerEvent) types.HookResult {
		switch evt.Type {
		case types.EventWorldChange:
			pw.OnWorldChange(evt.Player, evt.FromWorld)
		case types.EventQuit, types.EventKick:
			pw.OnPlayerExit(evt.Player)
		default:
			pw.logger.Warnf("unknown event type %q from %s", evt.Type, evt.Player.Name())
		}
		return types.HookResultContinue
	})
}

func (pw *PerWorld) RegisterEventHook(name string, priority types.HookPriority, hook types.EventHook) (types.HookHandle, error) {
	return pw.hooks.register(name, priority, hook)
}

func (pw *PerWorld) UnregisterEventHook(handle types.HookHandle) bool {
	return pw.hooks.unregister(handle)
}

// Dispatch runs event hooks in priority order. A hook returning
// HookResultStop cancels the event, including the built-in handling.
func (pw *PerWorld) Dispatch(evt *types.PlayerEvent) {
	if evt == nil || evt.Player == nil {
		return
	}

	for _, entry := range pw.hooks.snapshot() {
		switch pw.runHook(entry, evt) {
		case types.HookResultContinue:
			continue
		case types.HookResultStop:
			pw.debugf("event %s for %s stopped by hook %s", evt.Type, evt.Player.Name(), entry.name)
			return
		default:
			continue
		}
	}
}

// runHook 钩子 panic 时记录日志并继续执行后面的钩子
func (pw *PerWorld) runHook(entry hookEntry[types.EventHook], evt *types.PlayerEvent) (result types.HookResult) {
	defer func() {
		if r := recover(); r != nil {
			pw.logger.Errorf("hook %s panicked on %s for %s: %v", entry.name, evt.Type, evt.Player.Name(), r)
			result = types.HookResultContinue
		}
	}()
	return entry.handler(evt)
}
