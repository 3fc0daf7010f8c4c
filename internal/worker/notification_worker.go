package worker

import (
	"github.com/spec-kit/crm-service/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to the dispatcher.
// It must run before the HTTP server accepts requests so no event is missed.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
