package catalog

import (
	"sync"

	"photokiosk/internal/models"
)

// Selection is the kiosk's cursor over the fetched frame list.
type Selection struct {
	mu     sync.RWMutex
	frames []models.Frame
	index  int
}

func NewSelection(frames []models.Frame) *Selection {
	s := &Selection{}
	s.Replace(frames)
	return s
}

// Replace swaps in a freshly fetched list. The current frame stays selected
// if it is still listed.
func (s *Selection) Replace(frames []models.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := 0
	if s.index < len(s.frames) {
		current := s.frames[s.index].ID
		for i, f := range frames {
			if f.ID == current {
				next = i
				break
			}
		}
	}
	s.frames = append([]models.Frame(nil), frames...)
	s.index = next
}

// Current returns the selected frame, or false when the list is empty.
func (s *Selection) Current() (models.Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frames) == 0 {
		return models.Frame{}, false
	}
	return s.frames[s.index], true
}

func (s *Selection) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Selection) Frames() []models.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Frame(nil), s.frames...)
}

func (s *Selection) Next() (models.Frame, bool) {
	return s.step(1)
}

func (s *Selection) Prev() (models.Frame, bool) {
	return s.step(-1)
}

func (s *Selection) step(delta int) (models.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.frames)
	if n == 0 {
		return models.Frame{}, false
	}
	s.index = ((s.index+delta)%n + n) % n
	return s.frames[s.index], true
}
