package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"committee_backend/internal/booking"
	"committee_backend/internal/models"
	"committee_backend/internal/response"
	"committee_backend/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var ctx = context.Background()

type CreateCommitteeRequest struct {
	Name           string `json:"name" binding:"required"`
	District       string `json:"district"`
	MorningStart   string `json:"morning_start"`
	MorningEnd     string `json:"morning_end"`
	AfternoonStart string `json:"afternoon_start"`
	AfternoonEnd   string `json:"afternoon_end"`
	MaxPerShift    int    `json:"max_per_shift"`
	WorkingDays    string `json:"working_days"`
}

// CommitteeConfig — конфигурация комиссии, отдаваемая клиентам и кэшируемая в Redis.
type CommitteeConfig struct {
	CommitteeID    uint   `json:"committee_id"`
	Name           string `json:"name"`
	District       string `json:"district"`
	MorningStart   string `json:"morning_start"`
	MorningEnd     string `json:"morning_end"`
	AfternoonStart string `json:"afternoon_start"`
	AfternoonEnd   string `json:"afternoon_end"`
	MaxPerShift    int    `json:"max_per_shift"`
	WorkingDays    string `json:"working_days"`
}

func committeeCacheKey(id uint) string {
	return fmt.Sprintf("committee_config_%d", id)
}

// CreateCommitteeHandler обрабатывает создание комиссии
// @Summary		Создание комиссии
// @Description	Создаёт комиссию; создатель автоматически становится её администратором
// @Tags			committees
// @Accept			json
// @Produce		json
// @Param			committee	body		CreateCommitteeRequest	true	"Данные комиссии"
// @Security		BearerAuth
// @Success		201	{object}	CommitteeConfig			"Комиссия создана"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/committees [post]
func CreateCommitteeHandler(c *gin.Context) {
	var req CreateCommitteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	// Проверяем формат временных границ, если они заданы явно.
	for _, v := range []string{req.MorningStart, req.MorningEnd, req.AfternoonStart, req.AfternoonEnd} {
		if v == "" {
			continue
		}
		if _, err := booking.ParseHHMM(v); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Ошибка валидации данных",
				Details: err.Error(),
			})
			return
		}
	}

	committee := models.Committee{
		Name:           req.Name,
		District:       req.District,
		MorningStart:   req.MorningStart,
		MorningEnd:     req.MorningEnd,
		AfternoonStart: req.AfternoonStart,
		AfternoonEnd:   req.AfternoonEnd,
		MaxPerShift:    req.MaxPerShift,
		WorkingDays:    req.WorkingDays,
	}

	userID := c.GetUint("userID")
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&committee).Error; err != nil {
			return err
		}
		member := models.CommitteeMember{
			CommitteeID: committee.ID,
			UserID:      userID,
			Role:        models.RoleAdmin,
			IsActive:    true,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании комиссии",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, committeeToConfig(&committee))
}

// JoinCommitteeHandler обрабатывает вступление в комиссию
// @Summary		Вступление в комиссию
// @Description	Добавляет пользователя участником комиссии; неактивное членство реактивируется
// @Tags			committees
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID комиссии"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Участие оформлено"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (INVALID_COMMITTEE_ID, ALREADY_A_MEMBER)"
// @Failure		404	{object}	response.ErrorResponse	"Комиссия не найдена (COMMITTEE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/committees/{id}/join [post]
func JoinCommitteeHandler(c *gin.Context) {
	committeeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_COMMITTEE_ID",
			Message: "Неверный идентификатор комиссии",
		})
		return
	}

	var committee models.Committee
	if err := storage.DB.First(&committee, committeeID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "COMMITTEE_NOT_FOUND",
			Message: "Комиссия не найдена",
		})
		return
	}

	userID := c.GetUint("userID")
	var member models.CommitteeMember
	findErr := storage.DB.
		Where("user_id = ? AND committee_id = ?", userID, committeeID).
		First(&member).Error
	if findErr == nil {
		if member.IsActive {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "ALREADY_A_MEMBER",
				Message: "Пользователь уже состоит в комиссии",
			})
			return
		}
		member.IsActive = true
		if err := storage.DB.Save(&member).Error; err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка при восстановлении членства",
				Details: err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, response.SuccessResponse{Message: "Членство в комиссии восстановлено"})
		return
	}
	if !errors.Is(findErr, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка проверки членства",
			Details: findErr.Error(),
		})
		return
	}

	member = models.CommitteeMember{
		CommitteeID: uint(committeeID),
		UserID:      userID,
		Role:        models.RoleMember,
		IsActive:    true,
	}
	if err := storage.DB.Create(&member).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при вступлении в комиссию",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Вы успешно вступили в комиссию"})
}

// GetCommitteeHandler обрабатывает запрос конфигурации комиссии
// @Summary		Конфигурация комиссии
// @Description	Возвращает конфигурацию смен комиссии, кэшируется в Redis на 5 минут
// @Tags			committees
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID комиссии"
// @Security		BearerAuth
// @Success		200	{object}	CommitteeConfig			"Конфигурация комиссии"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (INVALID_COMMITTEE_ID)"
// @Failure		404	{object}	response.ErrorResponse	"Комиссия не найдена (COMMITTEE_NOT_FOUND)"
// @Router			/api/committees/{id} [get]
func GetCommitteeHandler(c *gin.Context) {
	committeeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_COMMITTEE_ID",
			Message: "Неверный идентификатор комиссии",
		})
		return
	}

	cacheKey := committeeCacheKey(uint(committeeID))
	if storage.RedisClient != nil {
		cached, err := storage.RedisClient.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var config CommitteeConfig
			if err := json.Unmarshal([]byte(cached), &config); err == nil {
				c.JSON(http.StatusOK, config)
				return
			}
		}
	}

	var committee models.Committee
	if err := storage.DB.First(&committee, committeeID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "COMMITTEE_NOT_FOUND",
			Message: "Комиссия не найдена",
		})
		return
	}

	config := committeeToConfig(&committee)
	if storage.RedisClient != nil {
		if data, err := json.Marshal(config); err == nil {
			storage.RedisClient.Set(ctx, cacheKey, data, 5*time.Minute)
		}
	}

	c.JSON(http.StatusOK, config)
}

type UpdateCommitteeRequest struct {
	MorningStart   *string `json:"morning_start"`
	MorningEnd     *string `json:"morning_end"`
	AfternoonStart *string `json:"afternoon_start"`
	AfternoonEnd   *string `json:"afternoon_end"`
	MaxPerShift    *int    `json:"max_per_shift"`
	WorkingDays    *string `json:"working_days"`
}

// UpdateCommitteeHandler обрабатывает изменение конфигурации комиссии
// @Summary		Изменение конфигурации комиссии
// @Description	Администратор меняет окна смен и лимиты; кэш конфигурации сбрасывается
// @Tags			committees
// @Accept			json
// @Produce		json
// @Param			id			path		string					true	"ID комиссии"
// @Param			committee	body		UpdateCommitteeRequest	true	"Изменяемые поля"
// @Security		BearerAuth
// @Success		200	{object}	CommitteeConfig			"Обновлённая конфигурация"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, INVALID_COMMITTEE_ID)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав администратора (NOT_AN_ADMIN)"
// @Failure		404	{object}	response.ErrorResponse	"Комиссия не найдена (COMMITTEE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/committees/{id} [patch]
func UpdateCommitteeHandler(c *gin.Context) {
	committeeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_COMMITTEE_ID",
			Message: "Неверный идентификатор комиссии",
		})
		return
	}

	userID := c.GetUint("userID")
	if !booking.IsAdmin(userID, uint(committeeID)) {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_AN_ADMIN",
			Message: "Требуются права администратора комиссии",
		})
		return
	}

	var committee models.Committee
	if err := storage.DB.First(&committee, committeeID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "COMMITTEE_NOT_FOUND",
			Message: "Комиссия не найдена",
		})
		return
	}

	var req UpdateCommitteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	fields := map[string]interface{}{}
	for field, value := range map[string]*string{
		"morning_start":   req.MorningStart,
		"morning_end":     req.MorningEnd,
		"afternoon_start": req.AfternoonStart,
		"afternoon_end":   req.AfternoonEnd,
	} {
		if value == nil {
			continue
		}
		if _, err := booking.ParseHHMM(*value); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Ошибка валидации данных",
				Details: err.Error(),
			})
			return
		}
		fields[field] = *value
	}
	if req.MaxPerShift != nil {
		fields["max_per_shift"] = *req.MaxPerShift
	}
	if req.WorkingDays != nil {
		fields["working_days"] = *req.WorkingDays
	}

	if len(fields) > 0 {
		if err := storage.DB.Model(&committee).Updates(fields).Error; err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка обновления комиссии",
				Details: err.Error(),
			})
			return
		}
		if storage.RedisClient != nil {
			storage.RedisClient.Del(ctx, committeeCacheKey(committee.ID))
		}
	}

	c.JSON(http.StatusOK, committeeToConfig(&committee))
}

// MyCommitteeItem — комиссия пользователя с его ролью.
type MyCommitteeItem struct {
	CommitteeID uint   `json:"committee_id"`
	Name        string `json:"name"`
	District    string `json:"district"`
	Role        string `json:"role"`
}

// GetMyCommitteesHandler обрабатывает запрос списка своих комиссий
// @Summary		Список своих комиссий
// @Description	Возвращает комиссии, в которых пользователь состоит, с его ролью
// @Tags			profile
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		MyCommitteeItem			"Список комиссий"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/profile/committees [get]
func GetMyCommitteesHandler(c *gin.Context) {
	userID := c.GetUint("userID")

	var members []models.CommitteeMember
	if err := storage.DB.
		Preload("Committee").
		Where("user_id = ? AND is_active = true", userID).
		Find(&members).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки комиссий пользователя",
			Details: err.Error(),
		})
		return
	}

	items := make([]MyCommitteeItem, 0, len(members))
	for _, m := range members {
		items = append(items, MyCommitteeItem{
			CommitteeID: m.CommitteeID,
			Name:        m.Committee.Name,
			District:    m.Committee.District,
			Role:        m.Role,
		})
	}

	c.JSON(http.StatusOK, items)
}

func committeeToConfig(committee *models.Committee) CommitteeConfig {
	return CommitteeConfig{
		CommitteeID:    committee.ID,
		Name:           committee.Name,
		District:       committee.District,
		MorningStart:   committee.MorningStart,
		MorningEnd:     committee.MorningEnd,
		AfternoonStart: committee.AfternoonStart,
		AfternoonEnd:   committee.AfternoonEnd,
		MaxPerShift:    committee.MaxPerShift,
		WorkingDays:    committee.WorkingDays,
	}
}
