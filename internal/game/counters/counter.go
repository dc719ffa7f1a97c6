package counters

import (
	"encoding/json"
	"sort"
)

// Counter is a named non-negative tally.
type Counter struct {
	Name  string
	Count int
}

// NewCounter creates a new counter with the given name and count.
func NewCounter(name string, count int) *Counter {
	if count < 0 {
		count = 0
	}
	return &Counter{
		Name:  name,
		Count: count,
	}
}

// Add adds the specified amount to the counter.
func (c *Counter) Add(amount int) {
	if amount > 0 {
		c.Count += amount
	}
}

// Remove removes the specified amount from the counter.
// Will not allow count to go below 0.
func (c *Counter) Remove(amount int) {
	if amount > 0 {
		if c.Count >= amount {
			c.Count -= amount
		} else {
			c.Count = 0
		}
	}
}

// Copy creates a deep copy of the counter.
func (c *Counter) Copy() *Counter {
	return &Counter{
		Name:  c.Name,
		Count: c.Count,
	}
}

// Counters is the run statistics table of a player. It serialises as a
// plain name -> count object.
type Counters struct {
	Counters map[string]*Counter
}

// NewCounters creates a new Counters collection.
func NewCounters() *Counters {
	return &Counters{
		Counters: make(map[string]*Counter),
	}
}

// Add increments the named counter, creating it if necessary.
func (cs *Counters) Add(name Stat, amount int) {
	if amount <= 0 {
		return
	}
	if cs.Counters == nil {
		cs.Counters = make(map[string]*Counter)
	}
	if existing, ok := cs.Counters[string(name)]; ok {
		existing.Add(amount)
		return
	}
	cs.Counters[string(name)] = NewCounter(string(name), amount)
}

// Remove decrements the named counter, deleting it when it reaches zero.
// Returns true if the counter existed.
func (cs *Counters) Remove(name Stat, amount int) bool {
	if amount <= 0 {
		return false
	}
	if counter, ok := cs.Counters[string(name)]; ok {
		counter.Remove(amount)
		if counter.Count == 0 {
			delete(cs.Counters, string(name))
		}
		return true
	}
	return false
}

// Get returns the count of the named counter.
func (cs *Counters) Get(name Stat) int {
	if cs == nil {
		return 0
	}
	if counter, ok := cs.Counters[string(name)]; ok {
		return counter.Count
	}
	return 0
}

// Has returns true if the named counter is positive.
func (cs *Counters) Has(name Stat) bool {
	return cs.Get(name) > 0
}

// Total returns the sum of every counter.
func (cs *Counters) Total() int {
	total := 0
	for _, counter := range cs.Counters {
		total += counter.Count
	}
	return total
}

// Copy creates a deep copy of the Counters collection.
func (cs *Counters) Copy() *Counters {
	out := NewCounters()
	if cs == nil {
		return out
	}
	for name, counter := range cs.Counters {
		out.Counters[name] = counter.Copy()
	}
	return out
}

// ToView returns the counters ordered by name.
func (cs *Counters) ToView() []CounterView {
	views := make([]CounterView, 0, len(cs.Counters))
	for name, counter := range cs.Counters {
		views = append(views, CounterView{
			Name:  name,
			Count: counter.Count,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// CounterView represents a counter in the view format.
type CounterView struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MarshalJSON encodes the counters as a name -> count object.
func (cs *Counters) MarshalJSON() ([]byte, error) {
	flat := make(map[string]int, len(cs.Counters))
	for name, counter := range cs.Counters {
		flat[name] = counter.Count
	}
	return json.Marshal(flat)
}

// UnmarshalJSON decodes a name -> count object, dropping non-positive counts.
func (cs *Counters) UnmarshalJSON(data []byte) error {
	var flat map[string]int
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	cs.Counters = make(map[string]*Counter, len(flat))
	for name, count := range flat {
		if count > 0 {
			cs.Counters[name] = NewCounter(name, count)
		}
	}
	return nil
}
