package delegation

// State is the narrow persistence port the engine owns, satisfied in
// production by storage/boltstore and in tests by an in-memory fake.
type State interface {
	Topic(topic uint64) (Topic, bool, error)
	PutTopic(Topic) error
	NextTopicID() (uint64, error)

	Edge(topic uint64, participant string) (target string, ok bool, err error)
	PutEdge(topic uint64, participant, target string) error
	DeleteEdge(topic uint64, participant string) error

	DeadEnd(topic uint64, participant string) (bool, error)
	SetDeadEnd(topic uint64, participant string, flag bool) error

	// Participation returns the topic participation index: every
	// participant that has ever had an outgoing edge on the topic, in
	// insertion order. It never shrinks.
	Participation(topic uint64) ([]string, error)
	AddParticipation(topic uint64, participant string) error

	AppendAudit(AuditRecord) error
}
