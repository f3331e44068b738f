package relay

// Topic is a named fan-out group. A room code maps to the topic "room-<code>".
type Topic struct {
	Name string

	// Subscribers are the connections currently joined to the topic.
	Subscribers map[*Client]struct{}
}

func newTopic(name string) *Topic {
	return &Topic{Name: name, Subscribers: make(map[*Client]struct{})}
}

func (t *Topic) add(c *Client)    { t.Subscribers[c] = struct{}{} }
func (t *Topic) remove(c *Client) { delete(t.Subscribers, c) }
func (t *Topic) size() int        { return len(t.Subscribers) }
