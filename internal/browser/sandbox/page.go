package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/GriffinCanCode/AiPlugs/backend/internal/types"
)

// Page is one simulated document with its own goja runtime.
// A new top-level navigation replaces the Page.
type Page struct {
	id     types.ContextID
	config Config

	mu        sync.Mutex
	url       string
	readiness types.Readiness
	vm        *goja.Runtime
	document  *goja.Object
	dom       *DOM
	console   []LogEntry
	runs      int
}

func newPage(id types.ContextID, url string, config Config) *Page {
	p := &Page{
		id:        id,
		config:    config,
		url:       url,
		readiness: types.ReadinessLoading,
		vm:        goja.New(),
		dom:       NewDOM(),
	}
	p.setupGlobals()
	return p
}

// Execute runs code with the configured timeout. Cancelling ctx interrupts it.
func (p *Page) Execute(ctx context.Context, code string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	timeout := p.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-timer.C:
			p.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			p.vm.Interrupt("context cancelled")
		case <-stop:
		}
	}()

	_ = p.document.Set("readyState", string(p.readiness))
	_, err := p.vm.RunString(code)

	close(stop)
	wg.Wait()
	p.vm.ClearInterrupt()
	p.runs++

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("execute in %s: %w", p.id, ctxErr)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Errorf("execute in %s: timed out after %s", p.id, timeout)
	}
	return fmt.Errorf("execute in %s: %w", p.id, err)
}

// Summary returns a snapshot of the page
func (p *Page) Summary() PageSummary {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := PageSummary{
		ID:        p.id,
		URL:       p.url,
		Readiness: p.readiness,
		Scripts:   p.dom.Scripts(),
		Console:   append([]LogEntry(nil), p.console...),
		Runs:      p.runs,
	}
	if v := p.vm.Get("__AIPLUGS_CONFIG__"); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		if m, ok := v.Export().(map[string]interface{}); ok {
			s.Config = m
		}
	}
	return s
}

// Scripts returns the script sources appended to the document, in order
func (p *Page) Scripts() []string {
	return p.dom.Scripts()
}

func (p *Page) setReadiness(r types.Readiness) {
	p.mu.Lock()
	p.readiness = r
	p.mu.Unlock()
}

func (p *Page) setURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

func (p *Page) getReadiness() types.Readiness {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readiness
}

// setupGlobals installs window, document and a captured console
func (p *Page) setupGlobals() {
	vm := p.vm

	vm.Set("require", goja.Undefined())
	vm.Set("process", goja.Undefined())
	vm.Set("module", goja.Undefined())
	vm.Set("exports", goja.Undefined())
	vm.Set("window", vm.GlobalObject())
	vm.Set("setTimeout", func(goja.FunctionCall) goja.Value { return goja.Undefined() })

	if p.config.EnableConsole {
		console := vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error"} {
			_ = console.Set(level, p.consoleFunc(level))
		}
		vm.Set("console", console)
	}

	document := vm.NewObject()
	_ = document.Set("head", p.elementObject(p.dom.head))
	_ = document.Set("documentElement", p.elementObject(p.dom.root))
	_ = document.Set("readyState", string(types.ReadinessLoading))
	_ = document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		el := vm.NewObject()
		_ = el.Set("tagName", strings.ToUpper(call.Argument(0).String()))
		return el
	})
	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		src, ok := scriptSelector(call.Argument(0).String())
		if !ok {
			return goja.Null()
		}
		for _, s := range p.dom.Scripts() {
			if s == src {
				return vm.ToValue(map[string]interface{}{"tagName": "SCRIPT", "src": s})
			}
		}
		return goja.Null()
	})
	vm.Set("document", document)
	p.document = document
}

// elementObject exposes e to script with an appendChild that records nodes
func (p *Page) elementObject(e *Element) *goja.Object {
	obj := p.vm.NewObject()
	_ = obj.Set("tagName", e.TagName)
	_ = obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		node := call.Argument(0).ToObject(p.vm)
		p.dom.Append(e, p.elementFrom(node))
		return node
	})
	return obj
}

func (p *Page) elementFrom(node *goja.Object) *Element {
	el := &Element{Attributes: map[string]string{}}
	if v := node.Get("tagName"); present(v) {
		el.TagName = v.String()
	}
	for _, attr := range []string{"src", "id", "type"} {
		if v := node.Get(attr); present(v) {
			el.Attributes[attr] = v.String()
		}
	}
	if v := node.Get("async"); present(v) {
		el.Attributes["async"] = strconv.FormatBool(v.ToBoolean())
	}
	return el
}

func (p *Page) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		// Called from RunString, so p.mu is already held
		p.console = append(p.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		return goja.Undefined()
	}
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

// scriptSelector extracts the src of a script[src="..."] selector
func scriptSelector(sel string) (string, bool) {
	const prefix, suffix = `script[src="`, `"]`
	if !strings.HasPrefix(sel, prefix) || !strings.HasSuffix(sel, suffix) {
		return "", false
	}
	return sel[len(prefix) : len(sel)-len(suffix)], true
}
