package handlers

import (
	"net/http"
	"strconv"
	"time"

	"committee_backend/internal/booking"
	"committee_backend/internal/models"
	"committee_backend/internal/response"
	"committee_backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type CreateActivityRequest struct {
	CommitteeID  uint   `json:"committee_id" binding:"required"`
	Title        string `json:"title" binding:"required"`
	ActivityDate string `json:"activity_date" binding:"required"` // YYYY-MM-DD
	StartTime    string `json:"start_time"`                       // HH:MM, по умолчанию 09:00
}

type ActivityResponse struct {
	ActivityID   uint   `json:"activity_id"`
	CommitteeID  uint   `json:"committee_id"`
	Title        string `json:"title"`
	ActivityDate string `json:"activity_date"`
	StartTime    string `json:"start_time"`
	IsCompleted  bool   `json:"is_completed"`
}

// CreateActivityHandler обрабатывает создание мероприятия
// @Summary		Создание мероприятия
// @Description	Участник комиссии планирует мероприятие; по нему будут приходить напоминания
// @Tags			activities
// @Accept			json
// @Produce		json
// @Param			activity	body		CreateActivityRequest	true	"Данные мероприятия"
// @Security		BearerAuth
// @Success		201	{object}	ActivityResponse		"Мероприятие создано"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		403	{object}	response.ErrorResponse	"Нет членства в комиссии (NOT_A_MEMBER)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/activities [post]
func CreateActivityHandler(c *gin.Context) {
	var req CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.ActivityDate, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: "поле activity_date должно быть в формате YYYY-MM-DD",
		})
		return
	}
	if req.StartTime != "" {
		if _, err := booking.ParseHHMM(req.StartTime); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "Ошибка валидации данных",
				Details: err.Error(),
			})
			return
		}
	}

	userID := c.GetUint("userID")
	if !booking.IsMember(userID, req.CommitteeID) {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_A_MEMBER",
			Message: "Пользователь не является участником комиссии",
		})
		return
	}

	activity := models.MemberActivity{
		CommitteeID:  req.CommitteeID,
		UserID:       userID,
		Title:        req.Title,
		ActivityDate: booking.TruncateToDate(date),
		StartTime:    req.StartTime,
	}
	if err := storage.DB.Create(&activity).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка при создании мероприятия",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, activityToResponse(&activity))
}

// GetMyActivitiesHandler обрабатывает запрос списка своих мероприятий
// @Summary		Список своих мероприятий
// @Description	Возвращает незавершённые мероприятия пользователя
// @Tags			activities
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		ActivityResponse		"Список мероприятий"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/activities [get]
func GetMyActivitiesHandler(c *gin.Context) {
	userID := c.GetUint("userID")

	var activities []models.MemberActivity
	if err := storage.DB.
		Where("user_id = ? AND is_completed = false", userID).
		Order("activity_date ASC").
		Find(&activities).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки мероприятий",
			Details: err.Error(),
		})
		return
	}

	items := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		items = append(items, activityToResponse(&activities[i]))
	}

	c.JSON(http.StatusOK, items)
}

// CompleteActivityHandler обрабатывает завершение мероприятия
// @Summary		Завершение мероприятия
// @Description	Помечает мероприятие завершённым; напоминания по нему больше не приходят
// @Tags			activities
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID мероприятия"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Мероприятие завершено"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (INVALID_ACTIVITY_ID)"
// @Failure		403	{object}	response.ErrorResponse	"Чужое мероприятие (NOT_OWNER)"
// @Failure		404	{object}	response.ErrorResponse	"Мероприятие не найдено (ACTIVITY_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/activities/{id}/complete [patch]
func CompleteActivityHandler(c *gin.Context) {
	activityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ACTIVITY_ID",
			Message: "Неверный идентификатор мероприятия",
		})
		return
	}

	var activity models.MemberActivity
	if err := storage.DB.First(&activity, activityID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ACTIVITY_NOT_FOUND",
			Message: "Мероприятие не найдено",
		})
		return
	}

	userID := c.GetUint("userID")
	if activity.UserID != userID {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_OWNER",
			Message: "Мероприятие принадлежит другому пользователю",
		})
		return
	}

	activity.IsCompleted = true
	if err := storage.DB.Save(&activity).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка обновления мероприятия",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Мероприятие завершено"})
}

func activityToResponse(activity *models.MemberActivity) ActivityResponse {
	return ActivityResponse{
		ActivityID:   activity.ID,
		CommitteeID:  activity.CommitteeID,
		Title:        activity.Title,
		ActivityDate: activity.ActivityDate.Format("2006-01-02"),
		StartTime:    activity.StartTime,
		IsCompleted:  activity.IsCompleted,
	}
}
