package messages

// MessageKind discriminates the decoded trap message variants.
type MessageKind string

const (
	KindStatus   MessageKind = "status"
	KindLocation MessageKind = "location"
	KindLegacy   MessageKind = "legacy"
)

// Message is the tagged union produced by the payload codec. Exactly one of
// StatusMessage, LocationMessage or LegacyMessage implements it.
type Message interface {
	Kind() MessageKind
}
