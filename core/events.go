package core

type (
	// Event is a realtime notification fanned out to a family's connected clients.
	Event struct {
		Type     string      `json:"type"`
		FamilyID string      `json:"-"`
		Data     interface{} `json:"data"`
	}

	// EventPublisher fans events out to connected clients; UI plumbing only,
	// implementations give no delivery or durability guarantee.
	EventPublisher interface {
		Publish(evt Event)
	}

	// NopPublisher drops all events.
	NopPublisher struct{}
)

func (NopPublisher) Publish(Event) {}
