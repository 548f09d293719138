package pushsvc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"

	"github.com/woolzip/backend/core"
)

// defaultTTL is how long the push service may hold an undelivered message.
const defaultTTL = 60

type webpushService struct {
	conf   *core.Config
	logger core.Logger
}

var _ core.PushService = (*webpushService)(nil)

func NewWebpushService(conf *core.Config, logger core.Logger) *webpushService {
	return &webpushService{conf: conf, logger: logger}
}

func (svc webpushService) Send(ctx context.Context, subscriptionJSON string, notif core.Notification) error {
	sub := new(webpush.Subscription)
	if err := json.Unmarshal([]byte(subscriptionJSON), sub); err != nil {
		return errors.Wrap(err, "decoding push subscription")
	}

	payload, err := json.Marshal(notif)
	if err != nil {
		return errors.Wrap(err, "encoding push payload")
	}

	res, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      svc.conf.Push.ContactEmail,
		VAPIDPublicKey:  svc.conf.Push.VAPIDPublicKey,
		VAPIDPrivateKey: svc.conf.Push.VAPIDPrivateKey,
		TTL:             defaultTTL,
	})
	if err != nil {
		return errors.Wrap(err, "sending push notification")
	}
	defer res.Body.Close()

	// 404/410 mean the subscription is gone; callers treat any error as
	// a delivery failure and keep going.
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sending push notification - status: %d", res.StatusCode)
	}
	return nil
}
