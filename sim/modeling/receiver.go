package modeling

import "fmt"

// A Receiver buffers the tokens that arrive on one channel of an input port.
// Only the director puts tokens; only the owning actor gets them.
type Receiver struct {
	port    *InputPort
	channel int
	tokens  []Token
}

// Port returns the input port that owns the receiver.
func (r *Receiver) Port() *InputPort {
	return r.port
}

// Channel returns the channel index of the receiver within its port.
func (r *Receiver) Channel() int {
	return r.channel
}

// Put appends a token.
func (r *Receiver) Put(tok Token) {
	r.tokens = append(r.tokens, tok)
}

// HasToken tells if a token can be read.
func (r *Receiver) HasToken() bool {
	return len(r.tokens) > 0
}

// Get removes and returns the oldest token.
func (r *Receiver) Get() (Token, error) {
	if len(r.tokens) == 0 {
		return nil, fmt.Errorf("%w on %s[%d]",
			ErrNoTokenAvailable, r.port.FullName(), r.channel)
	}

	tok := r.tokens[0]
	r.tokens[0] = nil
	r.tokens = r.tokens[1:]

	return tok, nil
}

// Size returns the number of buffered tokens.
func (r *Receiver) Size() int {
	return len(r.tokens)
}

// Clear drops all the buffered tokens.
func (r *Receiver) Clear() {
	r.tokens = nil
}
