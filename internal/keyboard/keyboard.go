// Package keyboard redirects on-screen key presses into whichever editable
// element currently has focus. The host UI reports focus changes through
// FocusObserver; the package never owns the elements it edits.
//
// Service is embedded by the kiosk host UI, which owns the focusable
// elements. The HTTP service only publishes the key layout.
package keyboard

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SettleDelay is how long a blur waits before hiding the keyboard, so that
// focus moving onto the keyboard's own buttons does not close it.
const SettleDelay = 50 * time.Millisecond

type Kind int

const (
	KindOther Kind = iota
	KindInput
	KindTextArea
	KindContentEditable
)

// Element is the narrow view of a UI element the keyboard needs.
type Element interface {
	Kind() Kind
	// InputType is the input's type attribute; only meaningful for KindInput.
	InputType() string
	// Connected reports whether the element is still part of the document.
	Connected() bool
}

// RangeEditor is implemented by text inputs and text areas. Offsets are in
// runes.
type RangeEditor interface {
	Selection() (start, end int, ok bool)
	SetRangeText(text string, start, end int)
}

// CommandEditor is the fallback for contenteditable regions.
type CommandEditor interface {
	ExecCommand(name, value string) error
}

type FocusObserver interface {
	OnFocusChanged(el Element)
}

var nonText = map[string]bool{
	"checkbox": true,
	"radio":    true,
	"submit":   true,
	"button":   true,
	"file":     true,
	"range":    true,
	"color":    true,
}

func IsEditable(el Element) bool {
	if el == nil {
		return false
	}
	switch el.Kind() {
	case KindInput:
		return !nonText[strings.ToLower(el.InputType())]
	case KindTextArea, KindContentEditable:
		return true
	}
	return false
}

var layout = [][]string{
	{"q", "w", "e", "r", "t", "y", "u", "i", "o", "p"},
	{"a", "s", "d", "f", "g", "h", "j", "k", "l", "ı", "i"},
	{"z", "x", "c", "v", "b", "n", "m", "ö", "ç", "ş"},
}

// Layout returns a copy of the Turkish Q key rows.
func Layout() [][]string {
	rows := make([][]string, len(layout))
	for i, r := range layout {
		rows[i] = append([]string(nil), r...)
	}
	return rows
}

// Timer is the part of *time.Timer the settle delay uses.
type Timer interface {
	Stop() bool
}

type Option func(*Service)

// WithAfterFunc replaces time.AfterFunc for the settle delay.
func WithAfterFunc(fn func(d time.Duration, f func()) Timer) Option {
	return func(s *Service) { s.afterFunc = fn }
}

// Service is the process-wide keyboard state. Create one, Attach it when the
// UI starts and Detach it on shutdown.
type Service struct {
	mu        sync.Mutex
	attached  bool
	visible   bool
	shift     bool
	target    Element
	focused   Element
	pending   Timer
	upper     cases.Caser
	afterFunc func(d time.Duration, f func()) Timer
}

func New(opts ...Option) *Service {
	s := &Service{
		upper: cases.Upper(language.Turkish),
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Attach() {
	s.mu.Lock()
	s.attached = true
	s.mu.Unlock()
}

// Detach stops listening and forgets the target.
func (s *Service) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	s.visible = false
	s.target = nil
	s.focused = nil
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// OnFocusChanged is called with the newly focused element, or nil when
// focus left every element.
func (s *Service) OnFocusChanged(el Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.attached {
		return
	}
	s.focused = el
	if IsEditable(el) {
		s.target = el
		s.visible = true
		return
	}
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = s.afterFunc(SettleDelay, s.settle)
}

func (s *Service) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	if IsEditable(s.focused) {
		return
	}
	s.target = nil
	s.visible = false
}

// Press inserts key at the caret, uppercased while shift is active.
func (s *Service) Press(key string) {
	s.mu.Lock()
	target := s.target
	if s.shift {
		key = s.upper.String(key)
	}
	s.mu.Unlock()

	insert(target, key)
}

func (s *Service) Space() { s.insertRaw(" ") }

func (s *Service) Enter() { s.insertRaw("\n") }

func (s *Service) insertRaw(text string) {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()
	insert(target, text)
}

// Backspace deletes the selection, or the character before the caret.
func (s *Service) Backspace() {
	s.mu.Lock()
	target := s.target
	s.mu.Unlock()

	if !live(target) {
		return
	}
	if ed, ok := target.(RangeEditor); ok {
		if start, end, ok := ed.Selection(); ok {
			switch {
			case start != end:
				ed.SetRangeText("", start, end)
			case start > 0:
				ed.SetRangeText("", start-1, start)
			}
			return
		}
	}
	if ed, ok := target.(CommandEditor); ok {
		_ = ed.ExecCommand("delete", "")
	}
}

// ToggleShift flips shift; it stays on until toggled again.
func (s *Service) ToggleShift() {
	s.mu.Lock()
	s.shift = !s.shift
	s.mu.Unlock()
}

// Close hides the keyboard without touching focus.
func (s *Service) Close() {
	s.mu.Lock()
	s.visible = false
	s.mu.Unlock()
}

func (s *Service) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *Service) ShiftActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shift
}

// Label is what the key shows in the current shift state.
func (s *Service) Label(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shift {
		return s.upper.String(key)
	}
	return key
}

func live(el Element) bool {
	return el != nil && el.Connected()
}

// insert drops the text when the target is gone; failed commands are ignored.
func insert(target Element, text string) {
	if !live(target) {
		return
	}
	if ed, ok := target.(RangeEditor); ok {
		if start, end, ok := ed.Selection(); ok {
			ed.SetRangeText(text, start, end)
			return
		}
	}
	if ed, ok := target.(CommandEditor); ok {
		_ = ed.ExecCommand("insertText", text)
	}
}
