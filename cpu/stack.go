package cpu

const (
	STACK_LIMIT = 16 // Number of stack slots, including the unused slot 0.
)

// Stack holds subroutine return addresses.
//
// Pointer indexes the top entry; zero is empty. Slot 0 is never written, so
// at most STACK_LIMIT-1 calls can be nested.
type Stack struct {
	Data    [STACK_LIMIT]uint16
	Pointer uint8
}

// Push a return address. Fails if the stack is full.
func (s *Stack) Push(value uint16) (ok bool) {
	if s.Full() {
		return
	}

	s.Pointer++
	s.Data[s.Pointer] = value
	return true
}

// Pop the top return address. Fails if the stack is empty.
func (s *Stack) Pop() (value uint16, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Pointer--
	}
	return
}

func (s *Stack) Empty() bool {
	return s.Pointer == 0
}

func (s *Stack) Full() bool {
	return int(s.Pointer) >= STACK_LIMIT-1
}

// Peek returns the top return address without removing it.
func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() || int(s.Pointer) >= STACK_LIMIT {
		return
	}

	return s.Data[s.Pointer], true
}

func (s *Stack) Reset() {
	clear(s.Data[:])
	s.Pointer = 0
}
