package cache

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/sealdice/perworld/perworld/types"
)

type saveTask struct {
	rec  *types.Record
	gen  uint64
	done func(err error)
}

type keyState struct {
	mu      sync.Mutex // held while a write for the key is running
	latest  uint64
	pending int
}

// writeOrder serializes writes per key. A write that was stamped before a
// newer one for the same key is skipped when its turn comes.
type writeOrder struct {
	mu   sync.Mutex
	seq  uint64
	keys map[types.Key]*keyState
}

func newWriteOrder() *writeOrder {
	return &writeOrder{keys: map[types.Key]*keyState{}}
}

func (o *writeOrder) stamp(key types.Key) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	ks, ok := o.keys[key]
	if !ok {
		ks = &keyState{}
		o.keys[key] = ks
	}
	o.seq++
	ks.latest = o.seq
	ks.pending++
	return o.seq
}

// begin blocks until no other write for key runs. The returned release must
// be called exactly once.
func (o *writeOrder) begin(key types.Key, gen uint64) (superseded bool, release func()) {
	o.mu.Lock()
	ks := o.keys[key]
	o.mu.Unlock()

	ks.mu.Lock()
	o.mu.Lock()
	superseded = gen < ks.latest
	o.mu.Unlock()

	return superseded, func() {
		ks.mu.Unlock()
		o.drop(key)
	}
}

// pending reports whether a write for key is queued or running.
func (o *writeOrder) pending(key types.Key) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	ks, ok := o.keys[key]
	return ok && ks.pending > 0
}

func (o *writeOrder) drop(key types.Key) {
	o.mu.Lock()
	defer o.mu.Unlock()
	ks, ok := o.keys[key]
	if !ok {
		return
	}
	ks.pending--
	if ks.pending <= 0 {
		delete(o.keys, key)
	}
}

// savePool runs durable saves off the caller's goroutine. Submitted tasks are
// never cancelled; Close waits for the queue to drain.
type savePool struct {
	io      types.SnapshotIO
	tasks   chan saveTask
	limiter *rate.Limiter
	order   *writeOrder
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newSavePool(io types.SnapshotIO, workers, queue int, perSecond float64) *savePool {
	if workers <= 0 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	p := &savePool{
		io:      io,
		tasks:   make(chan saveTask, queue),
		limiter: rate.NewLimiter(limit, workers),
		order:   newWriteOrder(),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func (p *savePool) work() {
	defer p.wg.Done()
	ctx := context.Background()
	for task := range p.tasks {
		_ = p.limiter.Wait(ctx)
		_ = p.write(ctx, task.rec, task.gen, task.done)
	}
}

// write runs done before the key stops counting as pending, so a failed save
// is reported while the snapshot is still cached.
func (p *savePool) write(ctx context.Context, rec *types.Record, gen uint64, done func(err error)) error {
	superseded, release := p.order.begin(rec.Key, gen)
	defer release()

	var err error
	if !superseded {
		err = p.io.Save(ctx, rec)
	}
	if done != nil {
		done(err)
	}
	return err
}

// Pending reports whether a save for key has been submitted and not finished.
func (p *savePool) Pending(key types.Key) bool {
	return p.order.pending(key)
}

// SaveNow writes rec on the calling goroutine. Queued saves for the same key
// that were submitted earlier are skipped.
func (p *savePool) SaveNow(ctx context.Context, rec *types.Record) error {
	return p.write(ctx, rec, p.order.stamp(rec.Key), nil)
}

// Submit hands the record to a worker without blocking.
func (p *savePool) Submit(rec *types.Record, done func(err error)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return types.ErrClosed
	}
	task := saveTask{rec: rec, gen: p.order.stamp(rec.Key), done: done}
	select {
	case p.tasks <- task:
		return nil
	default:
		p.order.drop(rec.Key)
		return types.ErrQueueFull
	}
}

// Close stops accepting work and waits for queued saves, or for ctx.
func (p *savePool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
	p.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
