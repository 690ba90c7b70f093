package types

type HookHandle string

type HookPriority int

const (
	HookPriorityMonitor HookPriority = -100 // 最后执行，只观察结果
	HookPriorityLow     HookPriority = -10
	HookPriorityNormal  HookPriority = 0
	HookPriorityHigh    HookPriority = 10
)

type HookResult int

const (
	HookResultContinue HookResult = iota
	HookResultStop
)

type EventType string

const (
	EventWorldChange EventType = "world_change"
	EventQuit        EventType = "quit"
	EventKick        EventType = "kick"
)

// PlayerEvent 宿主上报的玩家事件
type PlayerEvent struct {
	Type      EventType
	Player    Player
	FromWorld string // 仅 world_change
}

type EventHook func(evt *PlayerEvent) HookResult
