package hook

import (
	"os"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	pkgerrors "github.com/remicres/theia-picker/pkg/errors"
)

// DefaultManager executes hook scripts with the Tengo interpreter.
type DefaultManager struct {
	mutex   sync.RWMutex
	scripts map[Event]string
}

// NewManager creates an empty hook manager.
func NewManager() *DefaultManager {
	return &DefaultManager{scripts: make(map[Event]string)}
}

// Add registers a hook script, replacing any previous one for the event.
func (m *DefaultManager) Add(hook Hook) error {
	if hook.Event == "" {
		return pkgerrors.ErrHookEventEmpty
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.scripts[hook.Event] = hook.Content
	return nil
}

// LoadFromFile registers the contents of path as the hook for event.
func (m *DefaultManager) LoadFromFile(event Event, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrHookLoad, "%s: %v", path, err)
	}
	return m.Add(Hook{Event: event, Content: string(content)})
}

// Has reports whether a hook is registered for the event.
func (m *DefaultManager) Has(event Event) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.scripts[event]
	return ok
}

// Execute runs the hook registered for the event, if any. A script reports
// failure by assigning a non-empty string or error value to `err`.
func (m *DefaultManager) Execute(event Event, ctx Context) error {
	m.mutex.RLock()
	script, ok := m.scripts[event]
	m.mutex.RUnlock()
	if !ok {
		return nil
	}

	instance := tengo.NewScript([]byte(script))
	instance.SetImports(stdlib.GetModuleMap("fmt", "os", "strings", "times"))

	_ = instance.Add("product", ctx.Product)
	_ = instance.Add("entry", ctx.Entry)
	_ = instance.Add("path", ctx.Path)
	for k, v := range ctx.Vars {
		_ = instance.Add(k, v)
	}

	compiled, err := instance.Run()
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrHookExecution, "%s: %v", event, err)
	}

	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return pkgerrors.Wrap(pkgerrors.ErrHookScript, v.Error())
		case string:
			if v != "" {
				return pkgerrors.Wrap(pkgerrors.ErrHookScript, v)
			}
		}
	}
	return nil
}
