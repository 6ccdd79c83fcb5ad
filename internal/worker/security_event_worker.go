package worker

import (
	"github.com/spec-kit/account-service/internal/service"
)

// StartSecurityEventWorker registers security notification handlers.
func StartSecurityEventWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
