package knowledgesync

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teambrain/knowledgesync/pkg/knowledge"
)

// Handler receives entries whose topics match a subscription. The entry
// is a copy; mutating it has no effect on the store.
type Handler func(*knowledge.Entry)

// Subscription is the handle returned by Subscribe. The caller owns it
// and passes it back to Unsubscribe; there is no other way to cancel.
type Subscription struct {
	id    string
	topic string
	fn    Handler
}

// Topic returns the normalized topic the subscription listens on.
func (sub *Subscription) Topic() string { return sub.topic }

// Subscribe registers a callback invoked synchronously whenever an entry
// carrying the topic is added or updated. Multiple subscriptions on the
// same topic all fire, in registration order. The topic is normalized
// the same way entry topics are, so Subscribe("Docker") matches entries
// tagged "docker".
//
// Callbacks run inline inside Add/Update, before the mutation returns.
// A panicking callback is recovered and logged; it never poisons the
// mutation or the other callbacks.
func (s *Store) Subscribe(topic string, fn Handler) *Subscription {
	sub := &Subscription{
		id:    uuid.NewString(),
		topic: knowledge.NormalizeTopic(topic),
		fn:    fn,
	}
	s.subs[sub.topic] = append(s.subs[sub.topic], sub)
	return sub
}

// Unsubscribe cancels a subscription. Returns false if the subscription
// is unknown (already cancelled, or from another store).
func (s *Store) Unsubscribe(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	list := s.subs[sub.topic]
	for i, candidate := range list {
		if candidate.id == sub.id {
			s.subs[sub.topic] = append(list[:i], list[i+1:]...)
			if len(s.subs[sub.topic]) == 0 {
				delete(s.subs, sub.topic)
			}
			return true
		}
	}
	return false
}

// notify fires the subscriptions matching the entry's topics: topics in
// entry order, subscriptions in registration order. Each callback gets
// its own copy of the entry.
func (s *Store) notify(entry *knowledge.Entry) {
	for _, topic := range entry.Topics {
		for _, sub := range s.subs[topic] {
			s.invoke(sub, entry.Clone())
		}
	}
}

func (s *Store) invoke(sub *Subscription, entry *knowledge.Entry) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscription callback panicked",
				zap.String("topic", sub.topic),
				zap.Any("panic", r))
		}
	}()
	sub.fn(entry)
}
