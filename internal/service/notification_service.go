package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"
)

type NotificationService struct {
	repo     *repository.NotificationRepository
	profiles *repository.ProfileRepository
	fcm      *FCMService
}

func NewNotificationService(repo *repository.NotificationRepository, profiles *repository.ProfileRepository, fcm *FCMService) *NotificationService {
	return &NotificationService{repo: repo, profiles: profiles, fcm: fcm}
}

func (s *NotificationService) Notify(userID, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	s.sendPush(userID, notifType, title, body, data)
	return nil
}

func (s *NotificationService) sendPush(userID, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil || s.profiles == nil {
		return
	}
	p, err := s.profiles.GetByID(userID)
	if err != nil || p.FCMToken == "" {
		return
	}
	// send errors are logged by FCMService
	_ = s.fcm.SendToUser(context.Background(), p.FCMToken, notifType, title, body, data)
}

func (s *NotificationService) NotifyVIPActivated(userID string, expiresAt *time.Time, source string) error {
	data := map[string]interface{}{"source": source}
	body := "Your VIP access is active."
	if expiresAt != nil {
		data["vip_expires_at"] = expiresAt.Format(time.RFC3339)
		body = fmt.Sprintf("Your VIP access is active until %s.", expiresAt.Format("02/01/2006"))
	}
	return s.Notify(userID, domain.NotifVIPActivated, "VIP activated", body, data)
}

func (s *NotificationService) NotifyRouletteWin(userID string, days int) error {
	return s.Notify(userID, domain.NotifRouletteWin, "You won!", fmt.Sprintf("You won %d days of VIP access.", days),
		map[string]interface{}{"vip_days_won": days})
}

func (s *NotificationService) List(userID string, page, limit int) ([]models.Notification, int64, error) {
	return s.repo.ListByUserID(userID, page, limit)
}

func (s *NotificationService) MarkRead(userID string, id uint) error {
	return s.repo.MarkRead(id, userID, time.Now().UTC())
}

// RegisterDevice stores the caller's FCM token.
func (s *NotificationService) RegisterDevice(userID, fcmToken string) error {
	return s.profiles.SetFCMToken(userID, fcmToken)
}
