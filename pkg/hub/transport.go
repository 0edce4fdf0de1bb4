package hub

// Transport is the write half of the link to one hub. Inbound notification
// chunks are pushed into Hub.Receive by whoever owns the link; chunk
// boundaries may split or coalesce frames arbitrarily.
type Transport interface {
	Write(p []byte) error
	Close() error
}
