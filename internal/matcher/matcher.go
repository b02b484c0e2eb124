// Package matcher decides whether a published message triggers a subscription.
package matcher

import "github.com/abramin/voyage/internal/catalog"

// Message is a candidate message synthesized from a publisher.
type Message struct {
	MessageType catalog.MessageType
	EventName   string
	Sender      catalog.Address
}

// Matches reports whether msg satisfies every filter present in the
// subscription criteria. Absent filters match anything. Receiver,
// principal and instance filters are not evaluated.
func Matches(sub catalog.Subscription, msg Message) bool {
	return MatchesCriteria(sub.SubscribesTo, msg)
}

// MatchesCriteria is Matches over bare criteria.
func MatchesCriteria(to catalog.SubscribesTo, msg Message) bool {
	if to.EventName != "" && to.EventName != msg.EventName {
		return false
	}
	if to.MessageType != "" && to.MessageType != msg.MessageType {
		return false
	}
	if s := to.Sender; s != nil {
		if s.Name != "" && s.Name != msg.Sender.ServiceName {
			return false
		}
		if s.Version != "" && s.Version != msg.Sender.ServiceVersion {
			return false
		}
		if s.Target != "" && s.Target != msg.Sender.ServiceTarget {
			return false
		}
	}
	return true
}

// FromCommand builds the success response message a command publishes.
func FromCommand(svc catalog.Service, cmd catalog.Command) Message {
	return Message{
		MessageType: catalog.MessageCommandSuccessResponse,
		EventName:   cmd.EventName,
		Sender:      catalog.Address{ServiceName: svc.Name, ServiceVersion: svc.Version, ServiceTarget: cmd.Name},
	}
}

// FromSubscription builds the message a subscription republishes. It is
// typed as a command success response like the messages of commands.
func FromSubscription(svc catalog.Service, sub catalog.Subscription) Message {
	return Message{
		MessageType: catalog.MessageCommandSuccessResponse,
		EventName:   sub.EventName,
		Sender:      catalog.Address{ServiceName: svc.Name, ServiceVersion: svc.Version, ServiceTarget: sub.Name},
	}
}
