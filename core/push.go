package core

import "context"

type (
	// Notification is the payload displayed by the service worker.
	Notification struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		URL   string `json:"url,omitempty"`
		Icon  string `json:"icon,omitempty"`
	}

	// PushService delivers a notification to one registered device endpoint.
	// The subscription is the browser's PushSubscription JSON as stored at registration.
	PushService interface {
		Send(ctx context.Context, subscriptionJSON string, notif Notification) error
	}
)
