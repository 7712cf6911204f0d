package catalog

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by CodeView.Load when a newer Load started before
// this one settled. Its result is discarded.
var ErrSuperseded = errors.New("request superseded by a newer request")

// CodeLoader fetches component source. Assembler satisfies it.
type CodeLoader interface {
	GetComponentCode(ctx context.Context, pathOrName string, framework Framework) (*ComponentCode, error)
}

// CodeView shows the code of one component and lets the caller switch
// framework. The last Load wins: starting a Load cancels the one in flight,
// and a result that arrives after a newer Load began is never published.
type CodeView struct {
	loader    CodeLoader
	component string

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	current    *ComponentCode
}

// NewCodeView creates a view over one component.
func NewCodeView(loader CodeLoader, component string) *CodeView {
	return &CodeView{loader: loader, component: component}
}

// Component returns the path or name the view was created for.
func (v *CodeView) Component() string {
	return v.component
}

// Load fetches the component code for framework and publishes it as current.
func (v *CodeView) Load(ctx context.Context, framework Framework) (*ComponentCode, error) {
	v.mu.Lock()
	v.generation++
	generation := v.generation
	if v.cancel != nil {
		v.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	code, err := v.loader.GetComponentCode(reqCtx, v.component, framework)

	v.mu.Lock()
	defer v.mu.Unlock()

	if generation != v.generation {
		return nil, ErrSuperseded
	}
	v.cancel = nil

	if err != nil {
		v.current = nil
		return nil, err
	}
	v.current = code
	return code, nil
}

// Current returns the result of the newest settled Load, or nil when it
// failed or nothing has loaded yet.
func (v *CodeView) Current() *ComponentCode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Close cancels any Load in flight. Its result will be discarded.
func (v *CodeView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.generation++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
}
