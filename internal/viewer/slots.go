package viewer

// Slot is one display region and the participant currently shown in it.
type Slot struct {
	Index    int
	Occupant string
	Stream   *Stream
}

// Empty reports whether no participant occupies the slot.
func (s Slot) Empty() bool {
	return s.Occupant == ""
}

// SlotAllocator assigns participants to a fixed set of display slots. A
// participant keeps its slot until Release, however often its stream changes.
type SlotAllocator struct {
	slots []Slot
}

// NewSlotAllocator returns an allocator with n empty slots.
func NewSlotAllocator(n int) *SlotAllocator {
	a := &SlotAllocator{slots: make([]Slot, n)}
	for i := range a.slots {
		a.slots[i].Index = i
	}
	return a
}

// OnTrackReceived places stream for participantID. A participant that already
// holds a slot has its stream replaced in place; otherwise the lowest empty
// slot is taken. It reports false when every slot is held by someone else.
func (a *SlotAllocator) OnTrackReceived(participantID string, stream *Stream) (int, bool) {
	if i, ok := a.SlotOf(participantID); ok {
		a.slots[i].Stream = stream
		return i, true
	}

	for i := range a.slots {
		if a.slots[i].Empty() {
			a.slots[i].Occupant = participantID
			a.slots[i].Stream = stream
			return i, true
		}
	}
	return -1, false
}

// SlotOf returns the slot index held by participantID.
func (a *SlotAllocator) SlotOf(participantID string) (int, bool) {
	if participantID == "" {
		return -1, false
	}
	for i := range a.slots {
		if a.slots[i].Occupant == participantID {
			return i, true
		}
	}
	return -1, false
}

// Release frees the slot held by participantID, if any.
func (a *SlotAllocator) Release(participantID string) (int, bool) {
	i, ok := a.SlotOf(participantID)
	if !ok {
		return -1, false
	}
	a.slots[i] = Slot{Index: i}
	return i, true
}

// Slots returns a copy of every slot in index order.
func (a *SlotAllocator) Slots() []Slot {
	out := make([]Slot, len(a.slots))
	copy(out, a.slots)
	return out
}
