package chat

// Fanout publishes to every wrapped Publisher
type Fanout []Publisher

// Publish forwards to each publisher in order
func (f Fanout) Publish(topic string, payload interface{}) {
	for _, p := range f {
		if p != nil {
			p.Publish(topic, payload)
		}
	}
}

// Discard drops everything published to it
type Discard struct{}

// Publish does nothing
func (Discard) Publish(string, interface{}) {}
