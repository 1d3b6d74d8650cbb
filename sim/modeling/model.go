package modeling

import "sort"

// A Link is one connection from an output channel to an input channel.
type Link struct {
	From     *OutputPort
	To       *InputPort
	Receiver *Receiver
}

// A Model is a flat graph of actors connected through ports. The order in
// which actors are added is their declaration order, which breaks ties between
// actors that have no dependency on each other.
type Model struct {
	name   string
	actors []Actor
	index  map[string]int
	links  []Link
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{
		name:  name,
		index: make(map[string]int),
	}
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// AddActor registers an actor. Actor names must be unique within a model.
func (m *Model) AddActor(a Actor) {
	if _, found := m.index[a.Name()]; found {
		panic("actor " + a.Name() + " already added")
	}

	m.index[a.Name()] = len(m.actors)
	m.actors = append(m.actors, a)
}

// Connect links an output port to an input port. A new channel is created on
// both ports. Both owners must have been added to the model.
func (m *Model) Connect(from *OutputPort, to *InputPort) {
	m.mustHaveActor(from.owner)
	m.mustHaveActor(to.owner)

	r := to.addReceiver()
	from.remotes = append(from.remotes, r)

	m.links = append(m.links, Link{From: from, To: to, Receiver: r})
}

func (m *Model) mustHaveActor(a Actor) {
	i, found := m.index[a.Name()]
	if !found || m.actors[i] != a {
		panic("actor " + a.Name() + " is not part of model " + m.name)
	}
}

// Actors returns the actors in declaration order.
func (m *Model) Actors() []Actor {
	actors := make([]Actor, len(m.actors))
	copy(actors, m.actors)

	return actors
}

// ActorByName finds an actor.
func (m *Model) ActorByName(name string) (Actor, bool) {
	i, found := m.index[name]
	if !found {
		return nil, false
	}

	return m.actors[i], true
}

// Links returns all the connections in the order they were made.
func (m *Model) Links() []Link {
	links := make([]Link, len(m.links))
	copy(links, m.links)

	return links
}

// Bind routes the sends of all connected output ports to the dispatcher.
func (m *Model) Bind(d Dispatcher) {
	for _, l := range m.links {
		l.From.dispatcher = d
	}
}

// Unbind detaches all output ports from their dispatcher.
func (m *Model) Unbind() {
	m.Bind(nil)
}

// ClearReceivers drops all the tokens buffered in the model.
func (m *Model) ClearReceivers() {
	for _, l := range m.links {
		l.Receiver.Clear()
	}
}

// Depths assigns every actor a distinct depth. If an actor sends to another
// actor through an input port without a declared delay, the sender gets the
// smaller depth. Actors with no relative order are ordered by declaration.
// A cycle of such dependencies has no valid order and is reported as a
// *LoopError.
func (m *Model) Depths() (map[Actor]int, error) {
	n := len(m.actors)
	successors := make([][]int, n)
	inDegree := make([]int, n)

	for _, l := range m.links {
		if l.To.HasDelay() {
			continue
		}

		from := m.index[l.From.owner.Name()]
		to := m.index[l.To.owner.Name()]
		successors[from] = append(successors[from], to)
		inDegree[to]++
	}

	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	depths := make(map[Actor]int, n)

	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		depths[m.actors[next]] = len(depths)

		for _, s := range successors[next] {
			inDegree[s]--
			if inDegree[s] == 0 {
				ready = insertSorted(ready, s)
			}
		}
	}

	if len(depths) < n {
		return nil, &LoopError{Actors: m.actorsOnLoops(successors, depths)}
	}

	return depths, nil
}

func insertSorted(list []int, v int) []int {
	i := sort.SearchInts(list, v)
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = v

	return list
}

// actorsOnLoops trims, from the actors that could not be ordered, those that
// are only downstream of a loop.
func (m *Model) actorsOnLoops(
	successors [][]int,
	ordered map[Actor]int,
) []string {
	remaining := make(map[int]bool)

	for i, a := range m.actors {
		if _, ok := ordered[a]; !ok {
			remaining[i] = true
		}
	}

	for changed := true; changed; {
		changed = false

		for i := range remaining {
			if !hasSuccessorIn(successors[i], remaining) {
				delete(remaining, i)
				changed = true
			}
		}
	}

	names := make([]string, 0, len(remaining))

	for i, a := range m.actors {
		if remaining[i] {
			names = append(names, a.Name())
		}
	}

	return names
}

func hasSuccessorIn(successors []int, set map[int]bool) bool {
	for _, s := range successors {
		if set[s] {
			return true
		}
	}

	return false
}
