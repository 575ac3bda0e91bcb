package tabs

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 100

// Action is an entry of the undo/redo history. It is either a
// ContentChange or a TabClose.
type Action interface {
	action()
}

// ContentChange records an edit of a tab buffer.
type ContentChange struct {
	TabID    string
	Previous string
	Next     string
}

// TabClose records a closed tab, buffer included.
type TabClose struct {
	Tab   Tab
	Index int
}

func (ContentChange) action() {}
func (TabClose) action()      {}

// history is a pair of LIFO stacks. Recording a new action clears redo.
type history struct {
	undo  []Action
	redo  []Action
	limit int
}

func (h *history) record(a Action) {
	h.undo = append(h.undo, a)
	if h.limit > 0 && len(h.undo) > h.limit {
		h.undo = append([]Action(nil), h.undo[len(h.undo)-h.limit:]...)
	}
	h.redo = nil
}

func pop(stack *[]Action) (Action, bool) {
	s := *stack
	if len(s) == 0 {
		return nil, false
	}
	a := s[len(s)-1]
	*stack = s[:len(s)-1]
	return a, true
}
