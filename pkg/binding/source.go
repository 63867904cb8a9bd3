package binding

import "sync"

// Source publishes the current value of a bound expression. Subscribe
// registers fn once; the source then calls it with the latest value every
// time the value changes. fn must not block. The returned cancel function
// stops further deliveries and is safe to call more than once.
type Source interface {
	Subscribe(fn func(value any)) (cancel func())
}

// Getter is implemented by sources that hold a current value before their
// first delivery.
type Getter interface {
	Get() any
}

// SourceFunc adapts a function into a Source.
type SourceFunc func(fn func(value any)) (cancel func())

// Subscribe implements Source.
func (f SourceFunc) Subscribe(fn func(value any)) func() {
	return f(fn)
}

// Value is an in-memory observable value. Set delivers the new value to
// every subscriber in registration order.
type Value struct {
	mu          sync.Mutex
	current     any
	nextID      int
	subscribers map[int]func(any)
	order       []int
}

// NewValue constructs a Value. The initial value is not delivered to
// subscribers; a Binder reads it through Get when binding.
func NewValue(initial any) *Value {
	return &Value{current: initial}
}

// Get returns the last value set, or the initial value.
func (v *Value) Get() any {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set stores value and notifies subscribers outside the lock.
func (v *Value) Set(value any) {
	v.mu.Lock()
	v.current = value
	subs := make([]func(any), 0, len(v.order))
	for _, id := range v.order {
		if fn, ok := v.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

// Subscribe implements Source.
func (v *Value) Subscribe(fn func(any)) func() {
	if fn == nil {
		return func() {}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.subscribers == nil {
		v.subscribers = make(map[int]func(any))
	}
	id := v.nextID
	v.nextID++
	v.subscribers[id] = fn
	v.order = append(v.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			delete(v.subscribers, id)
			for i, candidate := range v.order {
				if candidate == id {
					v.order = append(v.order[:i], v.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (v *Value) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subscribers)
}
