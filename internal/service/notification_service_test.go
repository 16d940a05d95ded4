package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/config"
	"github.com/Jlndre/Capstone-eLife/internal/events"
)

func newCapturingNotifier(cfg config.NotificationConfig) (*NotificationService, events.Dispatcher, *[]Notice) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	svc := NewNotificationService(dispatcher, nil, cfg)
	var mu sync.Mutex
	var sent []Notice
	svc.deliver = func(_ context.Context, n Notice) {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, n)
	}
	svc.RegisterHandlers()
	return svc, dispatcher, &sent
}

func TestNotificationsFollowRoutes(t *testing.T) {
	cfg := config.NotificationConfig{EmailFrom: "noreply@pensions.example", WebhookURL: "https://ops.example/hook"}
	_, dispatcher, sent := newCapturingNotifier(cfg)
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventCertificateIssued, "user-1", nil)))
	require.Len(t, *sent, 1)
	assert.Equal(t, "email", (*sent)[0].Channel)
	assert.Equal(t, "user-1", (*sent)[0].UserID)

	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventObligationMissed, "user-1", nil)))
	require.Len(t, *sent, 3)
	assert.Equal(t, "webhook", (*sent)[2].Channel)
	assert.Equal(t, cfg.WebhookURL, (*sent)[2].Target)
}

func TestNotificationsNeedConfiguredChannels(t *testing.T) {
	_, dispatcher, sent := newCapturingNotifier(config.NotificationConfig{})
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventLiveMatchFlagged, "user-1", nil)))
	assert.Empty(t, *sent)
}
