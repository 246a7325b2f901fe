package core

type SessionID string

// Frame is one encoded outbound signalling message.
type Frame []byte

// SignalConnection is the outbound half of a client's signalling channel.
// TrySend never blocks: a full queue is reported as an error and the caller
// applies its backpressure policy. The transport adapter owns the connection;
// Close may be called from any goroutine and more than once.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Session is a live transport connection as seen by the coordinator.
type Session struct {
	ID     SessionID
	IP     string
	Client string
	Signal SignalConnection
}
