package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/goroutine"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/logger"
	"github.com/Adechukwu-ctrl/sha-pay-backend/internal/models"
)

// NotificationRepository описывает взаимодействие с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// WSBroadcaster отправляет событие подключённым клиентам пользователя.
type WSBroadcaster interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// NotificationService сохраняет уведомления и доставляет их по WebSocket.
// Доставка fire-and-forget: бизнес-операции не ждут её и не зависят
// от её результата.
type NotificationService struct {
	repo NotificationRepository
	hub  WSBroadcaster
}

func NewNotificationService(repo NotificationRepository, hub WSBroadcaster) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

// Notify реализует Notifier: сохраняет уведомление и отправляет его
// в фоне, не блокируя вызывающую сторону.
func (s *NotificationService) Notify(userID uuid.UUID, event string, data interface{}) {
	goroutine.SafeGo(func() {
		payload, err := json.Marshal(data)
		if err != nil {
			logger.Log.WithError(err).Error("notification payload marshal failed")
			return
		}

		n := &models.Notification{
			UserID:  userID,
			Event:   event,
			Payload: payload,
		}
		if err := s.repo.Create(context.Background(), n); err != nil {
			logger.Log.WithError(err).Error("notification save failed")
		}

		if s.hub != nil {
			if err := s.hub.BroadcastToUser(userID, event, data); err != nil {
				logger.Log.WithError(err).Error("notification broadcast failed")
			}
		}
	})
}

// List возвращает уведомления пользователя.
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, userID, limit, offset, unreadOnly)
}

// MarkAsRead отмечает уведомление прочитанным.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id, userID)
}

// CountUnread возвращает число непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
