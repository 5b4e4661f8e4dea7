package hotkey

// Chord interprets raw edges as push-to-talk trigger edges.
//
// TriggerDown only counts while at least one modifier key is held. Modifiers
// are tracked per key code, so holding left and right Ctrl together and
// letting go of one keeps the chord alive. Releasing the trigger or the last
// held modifier ends an active chord. Key auto-repeat TriggerDowns are
// swallowed.
type Chord struct {
	modifiers map[uint16]struct{}
	active    bool
}

// Feed consumes one raw edge and reports the trigger edge it produces, if any.
func (c *Chord) Feed(edge Edge) (Edge, bool) {
	switch edge.Kind {
	case ModifierDown:
		if c.modifiers == nil {
			c.modifiers = make(map[uint16]struct{}, 2)
		}
		c.modifiers[edge.Code] = struct{}{}
	case ModifierUp:
		delete(c.modifiers, edge.Code)
		if c.active && len(c.modifiers) == 0 {
			c.active = false
			return Edge{Kind: TriggerUp, Code: edge.Code, At: edge.At}, true
		}
	case TriggerDown:
		if c.active || len(c.modifiers) == 0 {
			return Edge{}, false
		}
		c.active = true
		return edge, true
	case TriggerUp:
		if c.active {
			c.active = false
			return edge, true
		}
	}
	return Edge{}, false
}

// Active reports whether the chord is currently held.
func (c *Chord) Active() bool {
	return c.active
}
