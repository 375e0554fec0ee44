package sandbox

import (
	"strings"
	"sync"
)

// Element is a node appended to the simulated document
type Element struct {
	TagName    string
	Attributes map[string]string
	Children   []*Element
	Parent     *Element
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) string {
	return e.Attributes[name]
}

// AddElement adds a child element
func (e *Element) AddElement(child *Element) {
	child.Parent = e
	e.Children = append(e.Children, child)
}

// DOM is the minimal document a batch touches: head, documentElement and
// the script elements appended to them.
type DOM struct {
	mu   sync.RWMutex
	root *Element
	head *Element
}

// NewDOM creates an empty html/head document
func NewDOM() *DOM {
	root := &Element{TagName: "HTML", Attributes: map[string]string{}}
	head := &Element{TagName: "HEAD", Attributes: map[string]string{}}
	root.AddElement(head)
	return &DOM{root: root, head: head}
}

// Append adds child under parent, recording the order of insertion
func (d *DOM) Append(parent, child *Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	parent.AddElement(child)
}

// Scripts returns the src of every script element in document order
func (d *DOM) Scripts() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []string
	var walk func(e *Element)
	walk = func(e *Element) {
		if strings.EqualFold(e.TagName, "script") {
			if src := e.GetAttribute("src"); src != "" {
				out = append(out, src)
			}
		}
		for _, child := range e.Children {
			walk(child)
		}
	}
	walk(d.root)
	return out
}
