package pushsvc

import (
	"context"
	"log"
	"sync"

	"github.com/woolzip/backend/core"
)

var (
	SentNotifications = make([]core.Notification, 0)
	mu                sync.Mutex
)

type consoleService struct {
	disableOutput bool
}

var _ core.PushService = (*consoleService)(nil)

func NewConsoleService() core.PushService {
	return &consoleService{}
}

// NewConsoleServiceMock records notifications without printing them.
func NewConsoleServiceMock() core.PushService {
	return &consoleService{disableOutput: true}
}

func (svc consoleService) Send(ctx context.Context, subscriptionJSON string, notif core.Notification) error {
	mu.Lock()
	SentNotifications = append(SentNotifications, notif)
	mu.Unlock()

	if !svc.disableOutput {
		log.Printf("push -> %s: %s (%s)", subscriptionJSON, notif.Title, notif.Body)
	}
	return nil
}

// ResetSentNotifications clears the recorded notifications between tests.
func ResetSentNotifications() {
	mu.Lock()
	SentNotifications = SentNotifications[:0]
	mu.Unlock()
}
