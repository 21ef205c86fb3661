package event

// Type distinguishes how a key edge reached the input layer.
type Type int

const (
	Press   Type = iota // key went down
	Release             // key came back up
	Hold                // still down on a later poll
)
