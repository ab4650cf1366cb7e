package exhandler

import (
	"strings"

	"github.com/danielgtaylor/casing"
)

// Class identifies a kind of error in a single-inheritance hierarchy. Handlers
// are registered per class and resolved by walking from an error's class up
// through its parents, so a handler registered for a parent also serves all
// of its descendants unless a more specific registration exists.
//
//	var ErrWidget = exhandler.NewClass("widgets.WidgetError", exhandler.ClassException)
//	var ErrWidgetGone = exhandler.NewClass("widgets.WidgetGone", ErrWidget)
type Class struct {
	name   string
	parent *Class
}

// NewClass creates a class with the given name and parent. The name should be
// unique and is used to look up messages, e.g. `widgets.WidgetGone.title`. A
// nil parent creates a new root.
func NewClass(name string, parent *Class) *Class {
	if name == "" {
		panic("exhandler: class name must not be empty")
	}
	return &Class{name: name, parent: parent}
}

// Name returns the fully-qualified name, e.g. `exhandler.MethodNotAllowed`.
func (c *Class) Name() string {
	return c.name
}

// SimpleName returns the last dotted segment of the name.
func (c *Class) SimpleName() string {
	if i := strings.LastIndexByte(c.name, '.'); i >= 0 {
		return c.name[i+1:]
	}
	return c.name
}

// Slug returns the kebab-cased simple name, e.g. `method-not-allowed`.
func (c *Class) Slug() string {
	return casing.Kebab(c.SimpleName())
}

// Parent returns the parent class or nil for a root.
func (c *Class) Parent() *Class {
	return c.parent
}

// IsA reports whether c is other or one of its descendants.
func (c *Class) IsA(other *Class) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	return false
}

// Depth returns the number of ancestors of c.
func (c *Class) Depth() int {
	d := 0
	for cur := c.parent; cur != nil; cur = cur.parent {
		d++
	}
	return d
}

func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.name
}

// Classifier is implemented by errors which know their class.
type Classifier interface {
	Class() *Class
}

// ClassException is the root of every built-in class. Any error without a
// more specific class belongs to it.
var ClassException = NewClass("exhandler.Exception", nil)

// ClassOf returns the class declared by err, or ClassException when err does
// not implement Classifier. Use a Registry to also honor type bindings.
func ClassOf(err error) *Class {
	// Only the outermost error decides. Wrapped causes are considered by the
	// registry when unwrapping is enabled.
	if c, ok := err.(Classifier); ok {
		if cls := c.Class(); cls != nil {
			return cls
		}
	}
	return ClassException
}
