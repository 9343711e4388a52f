package dom

// Event is delivered to listeners by Trigger.
type Event struct {
	Type   string
	Target *Element
	Args   []any
}

// Listener handles an event.
type Listener func(Event)

type listener struct {
	id int
	fn Listener
}

// On registers fn for events of the given type and returns a handle that
// can be passed to OffHandle.
func (e *Element) On(eventType string, fn Listener) int {
	if e.listeners == nil {
		e.listeners = make(map[string][]listener)
	}
	e.nextID++
	e.listeners[eventType] = append(e.listeners[eventType], listener{id: e.nextID, fn: fn})
	return e.nextID
}

// Off removes every listener for the event type.
func (e *Element) Off(eventType string) {
	delete(e.listeners, eventType)
}

// OffHandle removes a single listener registered with On.
func (e *Element) OffHandle(eventType string, handle int) {
	ls := e.listeners[eventType]
	for i, l := range ls {
		if l.id == handle {
			e.listeners[eventType] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Trigger synchronously calls the listeners registered on e for eventType,
// in registration order. Events do not bubble.
func (e *Element) Trigger(eventType string, args ...any) {
	ls := append([]listener(nil), e.listeners[eventType]...)
	ev := Event{Type: eventType, Target: e, Args: args}
	for _, l := range ls {
		l.fn(ev)
	}
}

// Click triggers a "click" event.
func (e *Element) Click() {
	e.Trigger("click")
}
