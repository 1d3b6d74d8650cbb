package modeling

import (
	"fmt"

	"github.com/sarchlab/desim/sim/naming"
)

// A Dispatcher turns tokens sent through output ports into scheduled
// deliveries. The director is the dispatcher of a running model.
type Dispatcher interface {
	Dispatch(to *Receiver, tok Token) error
}

// An InputPort receives tokens. It has one receiver for each connection made
// to it; the receivers are its channels, numbered in connection order.
type InputPort struct {
	owner     Actor
	name      string
	receivers []*Receiver
	delayed   bool
}

// NewInputPort creates an input port owned by the given actor.
func NewInputPort(owner Actor, name string) *InputPort {
	naming.NameMustBeValid(name)

	return &InputPort{owner: owner, name: name}
}

// Name returns the local name of the port.
func (p *InputPort) Name() string {
	return p.name
}

// FullName returns the name of the port qualified by its owner.
func (p *InputPort) FullName() string {
	return naming.BuildName(p.owner.Name(), p.name)
}

// Owner returns the actor that owns the port.
func (p *InputPort) Owner() Actor {
	return p.owner
}

// Width returns the number of channels.
func (p *InputPort) Width() int {
	return len(p.receivers)
}

// Receivers returns the receivers of all the channels.
func (p *InputPort) Receivers() []*Receiver {
	return p.receivers
}

// HasToken tells if a token is available on the channel. Channels out of
// range never have tokens.
func (p *InputPort) HasToken(ch int) bool {
	if ch < 0 || ch >= len(p.receivers) {
		return false
	}

	return p.receivers[ch].HasToken()
}

// Get reads the oldest token on the channel.
func (p *InputPort) Get(ch int) (Token, error) {
	if ch < 0 || ch >= len(p.receivers) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrNoSuchChannel, p.FullName(), ch)
	}

	return p.receivers[ch].Get()
}

// DeclareDelay marks that tokens arriving on this port do not influence the
// owner's outputs at the same tag. Such ports do not create zero-delay
// dependencies.
func (p *InputPort) DeclareDelay() {
	p.delayed = true
}

// HasDelay tells if DeclareDelay was called.
func (p *InputPort) HasDelay() bool {
	return p.delayed
}

func (p *InputPort) addReceiver() *Receiver {
	r := &Receiver{port: p, channel: len(p.receivers)}
	p.receivers = append(p.receivers, r)

	return r
}

// An OutputPort sends tokens. It has one channel for each connection made
// from it, numbered in connection order.
type OutputPort struct {
	owner      Actor
	name       string
	remotes    []*Receiver
	dispatcher Dispatcher
}

// NewOutputPort creates an output port owned by the given actor.
func NewOutputPort(owner Actor, name string) *OutputPort {
	naming.NameMustBeValid(name)

	return &OutputPort{owner: owner, name: name}
}

// Name returns the local name of the port.
func (p *OutputPort) Name() string {
	return p.name
}

// FullName returns the name of the port qualified by its owner.
func (p *OutputPort) FullName() string {
	return naming.BuildName(p.owner.Name(), p.name)
}

// Owner returns the actor that owns the port.
func (p *OutputPort) Owner() Actor {
	return p.owner
}

// Width returns the number of channels.
func (p *OutputPort) Width() int {
	return len(p.remotes)
}

// Remotes returns the receivers that the channels deliver to.
func (p *OutputPort) Remotes() []*Receiver {
	return p.remotes
}

// Send sends a token through one channel.
func (p *OutputPort) Send(ch int, tok Token) error {
	if ch < 0 || ch >= len(p.remotes) {
		return fmt.Errorf("%w: %s[%d]", ErrNoSuchChannel, p.FullName(), ch)
	}

	if p.dispatcher == nil {
		return fmt.Errorf("%w: %s", ErrPortNotBound, p.FullName())
	}

	return p.dispatcher.Dispatch(p.remotes[ch], tok)
}

// Broadcast sends the token through every channel. Broadcasting through an
// unconnected port does nothing.
func (p *OutputPort) Broadcast(tok Token) error {
	for ch := range p.remotes {
		if err := p.Send(ch, tok); err != nil {
			return err
		}
	}

	return nil
}
