// Package theme maps the session's dark-mode and authentication flags to
// the document-root class and to the CLI palette.
package theme

import (
	"sort"
	"strings"
	"sync"

	"github.com/plantdash/plantdash/internal/session"
)

// DarkClass is the class toggled on the document root
const DarkClass = "dark"

// DarkEnabled reports whether the dark class belongs on the root: only an
// authenticated session can be dark.
func DarkEnabled(s session.State) bool {
	return s.IsAuthenticated && s.IsDarkMode
}

// Root is the element whose classes the theme controls
type Root interface {
	SetClass(name string, enabled bool)
}

// Bind applies the theme to root now and after every change to the
// dark-mode or authentication flag. It returns the unbind function.
func Bind(c *session.Container, root Root) func() {
	var mu sync.Mutex
	last := DarkEnabled(c.State())
	root.SetClass(DarkClass, last)

	return c.Subscribe(func(s session.State) {
		mu.Lock()
		defer mu.Unlock()

		if on := DarkEnabled(s); on != last {
			last = on
			root.SetClass(DarkClass, on)
		}
	})
}

// ClassList is a Root that records classes, used to render the class
// attribute of the <html> element.
type ClassList struct {
	mu      sync.Mutex
	classes map[string]bool
	changes int
}

// NewClassList creates a ClassList with the given classes set
func NewClassList(classes ...string) *ClassList {
	l := &ClassList{classes: make(map[string]bool)}
	for _, c := range classes {
		l.classes[c] = true
	}
	return l
}

func (l *ClassList) SetClass(name string, enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.changes++
	if enabled {
		l.classes[name] = true
	} else {
		delete(l.classes, name)
	}
}

// Has reports whether name is set
func (l *ClassList) Has(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.classes[name]
}

// Changes returns how many times SetClass was called
func (l *ClassList) Changes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.changes
}

// String returns the classes space separated in a stable order
func (l *ClassList) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.classes))
	for name := range l.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, " ")
}
