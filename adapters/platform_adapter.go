package adapters

import (
	"context"

	"github.com/sealdice/perworld/perworld/types"
)

// HostAdapter 宿主适配器接口：把宿主上报的玩家事件交给回调，再把状态变更发回宿主
type HostAdapter interface {
	// 连接管理
	IsAlive() bool
	Serve(ctx context.Context)
	Close()

	SetCallback(callback HostCallback)
}

// HostCallback receives decoded host events. OnPlayerEvent runs on the
// connection's read goroutine, so events of one host are handled in order.
type HostCallback interface {
	OnError(err error)
	OnPlayerEvent(evt *types.PlayerEvent)
}

// 实现检查
var (
	_ HostAdapter  = (*HostAdapterWS)(nil)
	_ types.Player = (*RemotePlayer)(nil)
)
