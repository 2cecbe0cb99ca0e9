package handlers

import (
	"errors"
	"net/http"

	"committee_backend/internal/models"
	"committee_backend/internal/response"
	"committee_backend/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type NotificationSettingsRequest struct {
	PushEnabled              *bool  `json:"push_enabled"`
	ShiftRemindersEnabled    *bool  `json:"shift_reminders_enabled"`
	ActivityRemindersEnabled *bool  `json:"activity_reminders_enabled"`
	ReminderMinutes          *int   `json:"reminder_minutes"`
	TelegramChatID           *int64 `json:"telegram_chat_id"`
}

type NotificationSettingsResponse struct {
	PushEnabled              bool  `json:"push_enabled"`
	ShiftRemindersEnabled    bool  `json:"shift_reminders_enabled"`
	ActivityRemindersEnabled bool  `json:"activity_reminders_enabled"`
	ReminderMinutes          int   `json:"reminder_minutes"`
	TelegramChatID           int64 `json:"telegram_chat_id"`
}

// UpdateNotificationSettingsHandler обрабатывает изменение настроек напоминаний
// @Summary		Настройки напоминаний
// @Description	Создаёт или обновляет настройки напоминаний пользователя
// @Tags			notifications
// @Accept			json
// @Produce		json
// @Param			settings	body		NotificationSettingsRequest	true	"Изменяемые поля"
// @Security		BearerAuth
// @Success		200	{object}	NotificationSettingsResponse	"Текущие настройки"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/profile/notifications [put]
func UpdateNotificationSettingsHandler(c *gin.Context) {
	var req NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}
	if req.ReminderMinutes != nil && *req.ReminderMinutes <= 0 {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: "reminder_minutes должно быть положительным",
		})
		return
	}

	userID := c.GetUint("userID")
	var settings models.NotificationSettings
	err := storage.DB.Where("user_id = ?", userID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.NotificationSettings{
			UserID:                   userID,
			ShiftRemindersEnabled:    true,
			ActivityRemindersEnabled: true,
			ReminderMinutes:          60,
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки настроек",
			Details: err.Error(),
		})
		return
	}

	if req.PushEnabled != nil {
		settings.PushEnabled = *req.PushEnabled
	}
	if req.ShiftRemindersEnabled != nil {
		settings.ShiftRemindersEnabled = *req.ShiftRemindersEnabled
	}
	if req.ActivityRemindersEnabled != nil {
		settings.ActivityRemindersEnabled = *req.ActivityRemindersEnabled
	}
	if req.ReminderMinutes != nil {
		settings.ReminderMinutes = *req.ReminderMinutes
	}
	if req.TelegramChatID != nil {
		settings.TelegramChatID = *req.TelegramChatID
	}

	if err := storage.DB.Save(&settings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения настроек",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, NotificationSettingsResponse{
		PushEnabled:              settings.PushEnabled,
		ShiftRemindersEnabled:    settings.ShiftRemindersEnabled,
		ActivityRemindersEnabled: settings.ActivityRemindersEnabled,
		ReminderMinutes:          settings.ReminderMinutes,
		TelegramChatID:           settings.TelegramChatID,
	})
}

type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
	P256dh   string `json:"p256dh" binding:"required"`
	Auth     string `json:"auth" binding:"required"`
}

// RegisterPushSubscriptionHandler обрабатывает регистрацию push-подписки
// @Summary		Регистрация push-подписки
// @Description	Сохраняет подписку браузера; повторная регистрация того же endpoint перепривязывает её
// @Tags			notifications
// @Accept			json
// @Produce		json
// @Param			subscription	body		PushSubscriptionRequest	true	"Данные подписки"
// @Security		BearerAuth
// @Success		201	{object}	response.SuccessResponse	"Подписка сохранена"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/profile/push-subscription [post]
func RegisterPushSubscriptionHandler(c *gin.Context) {
	var req PushSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	userID := c.GetUint("userID")
	var subscription models.PushSubscription
	err := storage.DB.Where("endpoint = ?", req.Endpoint).First(&subscription).Error
	if err == nil {
		// Тот же браузер, возможно другой пользователь — перепривязываем.
		subscription.UserID = userID
		subscription.P256dh = req.P256dh
		subscription.Auth = req.Auth
		if err := storage.DB.Save(&subscription).Error; err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка обновления подписки",
				Details: err.Error(),
			})
			return
		}
		c.JSON(http.StatusCreated, response.SuccessResponse{Message: "Подписка обновлена"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка проверки подписки",
			Details: err.Error(),
		})
		return
	}

	subscription = models.PushSubscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		P256dh:   req.P256dh,
		Auth:     req.Auth,
	}
	if err := storage.DB.Create(&subscription).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка сохранения подписки",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.SuccessResponse{Message: "Подписка сохранена"})
}
