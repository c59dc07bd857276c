package goThreeDS

import (
	"context"
	"sync"

	"github.com/MrEthical07/goThreeDS/internal/future"
)

// scripts is the process-wide record of SDK script loads. Each URL is loaded
// once and the load is shared by every strategy. A failed load is forgotten
// so a later strategy may retry it; a loaded script is never unloaded.
var scripts = &scriptRegistry{loads: make(map[string]*future.Future[struct{}])}

type scriptRegistry struct {
	mu    sync.Mutex
	loads map[string]*future.Future[struct{}]
}

// load waits for src to be loaded by loader, starting the load if nobody
// has. The load itself does not observe ctx cancellation.
func (r *scriptRegistry) load(ctx context.Context, loader ScriptLoader, src string) error {
	r.mu.Lock()
	f, ok := r.loads[src]
	if !ok {
		f = future.New[struct{}]()
		r.loads[src] = f
		go r.run(context.WithoutCancel(ctx), loader, src, f)
	}
	r.mu.Unlock()

	_, err := f.Wait(ctx)
	return err
}

func (r *scriptRegistry) run(ctx context.Context, loader ScriptLoader, src string, f *future.Future[struct{}]) {
	if err := loader.LoadScript(ctx, src); err != nil {
		r.mu.Lock()
		if r.loads[src] == f {
			delete(r.loads, src)
		}
		r.mu.Unlock()
		f.Reject(err)
		return
	}
	f.Resolve(struct{}{})
}

// loaded reports whether src finished loading successfully.
func (r *scriptRegistry) loaded(src string) bool {
	r.mu.Lock()
	f, ok := r.loads[src]
	r.mu.Unlock()
	if !ok {
		return false
	}
	_, err, settled := f.Result()
	return settled && err == nil
}
