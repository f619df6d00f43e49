package domain

// MessageKind distinguishes text-bearing messages from every other payload
// kind a broker may deliver.
type MessageKind int

const (
	KindText MessageKind = iota
	KindBytes
)

// Property is one named value attached to a received message, rendered as a
// string. Property order follows the order the broker reported them.
type Property struct {
	Name  string
	Value string
}

// Message is the canonical unit received from a topic: a text payload plus
// its properties. Messages are consumed once and discarded after draining.
type Message struct {
	Kind       MessageKind
	Text       string
	Properties []Property
}

// IsText reports whether the message carries a text payload. Listener-style
// delivery drops everything else.
func (m *Message) IsText() bool {
	return m != nil && m.Kind == KindText
}
