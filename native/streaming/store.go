package streaming

// State is the narrow persistence port the allocator owns.
type State interface {
	Pool(topic uint64) (Pool, bool, error)
	PutPool(topic uint64, pool Pool) error

	Stream(topic uint64, recipient string) (Stream, bool, error)
	PutStream(topic uint64, recipient string, stream Stream) error
	DeleteStream(topic uint64, recipient string) error

	// ActiveRecipients returns every recipient with an active stream on
	// topic, in no particular order.
	ActiveRecipients(topic uint64) ([]string, error)
}
