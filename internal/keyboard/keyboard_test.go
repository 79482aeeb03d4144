package keyboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// field is a text input or text area with a caret; offsets are runes.
type field struct {
	kind      Kind
	typ       string
	value     []rune
	start     int
	end       int
	connected bool
}

func newField(kind Kind, typ, value string) *field {
	v := []rune(value)
	return &field{kind: kind, typ: typ, value: v, start: len(v), end: len(v), connected: true}
}

func (f *field) Kind() Kind        { return f.kind }
func (f *field) InputType() string { return f.typ }
func (f *field) Connected() bool   { return f.connected }

func (f *field) Selection() (int, int, bool) { return f.start, f.end, true }

func (f *field) SetRangeText(text string, start, end int) {
	ins := []rune(text)
	v := make([]rune, 0, len(f.value)-(end-start)+len(ins))
	v = append(v, f.value[:start]...)
	v = append(v, ins...)
	v = append(v, f.value[end:]...)
	f.value = v
	f.start = start + len(ins)
	f.end = f.start
}

func (f *field) String() string { return string(f.value) }

// region is a contenteditable element that only understands commands.
type region struct {
	text     string
	commands []string
	err      error
}

func (r *region) Kind() Kind        { return KindContentEditable }
func (r *region) InputType() string { return "" }
func (r *region) Connected() bool   { return true }

func (r *region) ExecCommand(name, value string) error {
	r.commands = append(r.commands, name)
	if r.err != nil {
		return r.err
	}
	switch name {
	case "insertText":
		r.text += value
	case "delete":
		if rs := []rune(r.text); len(rs) > 0 {
			r.text = string(rs[:len(rs)-1])
		}
	}
	return nil
}

type stubTimer struct{ stopped bool }

func (t *stubTimer) Stop() bool { t.stopped = true; return true }

// manualTimers collects settle callbacks so tests decide when they fire.
type manualTimers struct {
	fns []func()
}

func (m *manualTimers) after(_ time.Duration, f func()) Timer {
	m.fns = append(m.fns, f)
	return &stubTimer{}
}

func (m *manualTimers) fireAll() {
	fns := m.fns
	m.fns = nil
	for _, f := range fns {
		f()
	}
}

func newService() (*Service, *manualTimers) {
	timers := &manualTimers{}
	s := New(WithAfterFunc(timers.after))
	s.Attach()
	return s, timers
}

func TestIsEditable(t *testing.T) {
	tests := []struct {
		name string
		el   Element
		want bool
	}{
		{"nil", nil, false},
		{"text input", newField(KindInput, "text", ""), true},
		{"email input", newField(KindInput, "email", ""), true},
		{"search input", newField(KindInput, "search", ""), true},
		{"checkbox", newField(KindInput, "checkbox", ""), false},
		{"radio", newField(KindInput, "radio", ""), false},
		{"submit", newField(KindInput, "submit", ""), false},
		{"button input", newField(KindInput, "button", ""), false},
		{"file", newField(KindInput, "file", ""), false},
		{"range", newField(KindInput, "range", ""), false},
		{"color", newField(KindInput, "Color", ""), false},
		{"textarea", newField(KindTextArea, "", ""), true},
		{"contenteditable", &region{}, true},
		{"div", newField(KindOther, "", ""), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsEditable(tt.el))
		})
	}
}

func TestFocus_ShowAndSettleHide(t *testing.T) {
	s, timers := newService()
	in := newField(KindInput, "text", "")

	s.OnFocusChanged(in)
	assert.True(t, s.Visible())

	s.OnFocusChanged(nil)
	assert.True(t, s.Visible(), "hides only after the settle delay")
	require.Len(t, timers.fns, 1)

	timers.fireAll()
	assert.False(t, s.Visible())

	s.Press("a")
	assert.Empty(t, in.String(), "target cleared after hide")
}

func TestFocus_MovingToAnotherEditableKeepsKeyboard(t *testing.T) {
	s, timers := newService()
	first := newField(KindInput, "text", "")
	second := newField(KindTextArea, "", "")

	s.OnFocusChanged(first)
	s.OnFocusChanged(nil)
	s.OnFocusChanged(second)
	timers.fireAll()

	assert.True(t, s.Visible())
	s.Press("x")
	assert.Equal(t, "x", second.String())
	assert.Empty(t, first.String())
}

func TestFocus_IgnoredWhenDetached(t *testing.T) {
	s := New()
	s.OnFocusChanged(newField(KindInput, "text", ""))
	assert.False(t, s.Visible())

	s.Attach()
	s.OnFocusChanged(newField(KindInput, "text", ""))
	assert.True(t, s.Visible())

	s.Detach()
	assert.False(t, s.Visible())
}

func TestDetach_StopsPendingSettle(t *testing.T) {
	timer := &stubTimer{}
	s := New(WithAfterFunc(func(time.Duration, func()) Timer { return timer }))
	s.Attach()
	s.OnFocusChanged(newField(KindInput, "text", ""))
	s.OnFocusChanged(nil)

	s.Detach()
	assert.True(t, timer.stopped)
}

func TestPress_InsertsAtCaret(t *testing.T) {
	s, _ := newService()
	in := newField(KindInput, "text", "ac")
	in.start, in.end = 1, 1
	s.OnFocusChanged(in)

	s.Press("b")
	assert.Equal(t, "abc", in.String())

	in.start, in.end = 0, 3
	s.Press("z")
	assert.Equal(t, "z", in.String(), "selection is replaced")
}

func TestShift_TurkishCasing(t *testing.T) {
	s, _ := newService()
	in := newField(KindInput, "text", "")
	s.OnFocusChanged(in)

	s.ToggleShift()
	for _, k := range []string{"i", "ı", "ş", "ö", "ç", "a"} {
		s.Press(k)
	}
	assert.Equal(t, "İIŞÖÇA", in.String())
	assert.Equal(t, "İ", s.Label("i"))
}

func TestShift_EvenTogglesRestoreCasing(t *testing.T) {
	for _, toggles := range []int{0, 2, 4, 6} {
		s, _ := newService()
		in := newField(KindInput, "text", "")
		s.OnFocusChanged(in)

		for i := 0; i < toggles; i++ {
			s.ToggleShift()
		}
		s.Press("i")
		assert.Equal(t, "i", in.String(), "toggles=%d", toggles)
		assert.False(t, s.ShiftActive())
	}
}

func TestShift_IsSticky(t *testing.T) {
	s, _ := newService()
	in := newField(KindInput, "text", "")
	s.OnFocusChanged(in)

	s.ToggleShift()
	s.Press("a")
	s.Press("b")
	assert.Equal(t, "AB", in.String())
	assert.True(t, s.ShiftActive())
}

func TestPress_SequenceEqualsSingleInsert(t *testing.T) {
	inputs := []string{"merhaba", "ğüşiöç ı", "kiosk 2026"}
	for _, text := range inputs {
		s, _ := newService()
		keyed := newField(KindTextArea, "", "önce ")
		s.OnFocusChanged(keyed)
		for _, r := range text {
			if r == ' ' {
				s.Space()
				continue
			}
			s.Press(string(r))
		}

		direct := newField(KindTextArea, "", "önce ")
		direct.SetRangeText(text, direct.start, direct.end)

		assert.Equal(t, direct.String(), keyed.String())
		assert.Equal(t, direct.start, keyed.start)
	}
}

func TestBackspace(t *testing.T) {
	s, _ := newService()
	in := newField(KindInput, "text", "şeker")
	s.OnFocusChanged(in)

	s.Backspace()
	assert.Equal(t, "şeke", in.String())

	in.start, in.end = 0, 2
	s.Backspace()
	assert.Equal(t, "ke", in.String())

	in.start, in.end = 0, 0
	s.Backspace()
	assert.Equal(t, "ke", in.String(), "nothing before the caret")
}

func TestEnterAndSpace(t *testing.T) {
	s, _ := newService()
	in := newField(KindTextArea, "", "")
	s.OnFocusChanged(in)

	s.Press("a")
	s.Space()
	s.Press("b")
	s.Enter()
	assert.Equal(t, "a b\n", in.String())
}

func TestContentEditableFallback(t *testing.T) {
	s, _ := newService()
	r := &region{}
	s.OnFocusChanged(r)

	s.Press("o")
	s.Press("k")
	s.Backspace()
	assert.Equal(t, "o", r.text)
	assert.Equal(t, []string{"insertText", "insertText", "delete"}, r.commands)

	r.err = errors.New("command not supported")
	assert.NotPanics(t, func() { s.Press("x") })
}

func TestDisconnectedTargetDropsKeys(t *testing.T) {
	s, _ := newService()
	in := newField(KindInput, "text", "abc")
	s.OnFocusChanged(in)

	in.connected = false
	assert.NotPanics(t, func() {
		s.Press("d")
		s.Backspace()
		s.Enter()
	})
	assert.Equal(t, "abc", in.String())
}

func TestClose_HidesWithoutClearingTarget(t *testing.T) {
	s, _ := newService()
	in := newField(KindInput, "text", "")
	s.OnFocusChanged(in)

	s.Close()
	assert.False(t, s.Visible())

	s.Press("a")
	assert.Equal(t, "a", in.String())
}

func TestLayout(t *testing.T) {
	rows := Layout()
	require.Len(t, rows, 3)
	assert.Len(t, rows[1], 11)
	assert.Contains(t, rows[1], "ı")

	rows[0][0] = "x"
	assert.Equal(t, "q", Layout()[0][0])
}

var _ FocusObserver = (*Service)(nil)
