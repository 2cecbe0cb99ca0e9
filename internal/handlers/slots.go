package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"committee_backend/internal/booking"
	"committee_backend/internal/models"
	"committee_backend/internal/response"
	"committee_backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type CreateSlotRequest struct {
	CommitteeID uint   `json:"committee_id" binding:"required"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Shift       string `json:"shift" binding:"required"`
	MaxCapacity int    `json:"max_capacity"`
	IsBlocked   bool   `json:"is_blocked"`
	Notes       string `json:"notes"`
}

type SlotResponse struct {
	SlotID      uint   `json:"slot_id"`
	CommitteeID uint   `json:"committee_id"`
	Date        string `json:"date"`
	Shift       string `json:"shift"`
	MaxCapacity int    `json:"max_capacity"`
	IsBlocked   bool   `json:"is_blocked"`
	Notes       string `json:"notes"`
}

// CreateSlotHandler обрабатывает явное создание слота администратором
// @Summary		Создание слота
// @Description	Администратор заранее создаёт слот смены с нужной вместимостью
// @Tags			slots
// @Accept			json
// @Produce		json
// @Param			slot	body		CreateSlotRequest	true	"Параметры слота"
// @Security		BearerAuth
// @Success		201	{object}	SlotResponse			"Слот создан"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (VALIDATION_ERROR, INVALID_SHIFT, DUPLICATE_SLOT)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав администратора (NOT_AN_ADMIN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/slots [post]
func CreateSlotHandler(c *gin.Context) {
	var req CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: "поле date должно быть в формате YYYY-MM-DD",
		})
		return
	}

	userID := c.GetUint("userID")
	if !booking.IsAdmin(userID, req.CommitteeID) {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_AN_ADMIN",
			Message: "Требуются права администратора комиссии",
		})
		return
	}

	slot, err := booking.CreateSlot(req.CommitteeID, date, models.Shift(req.Shift), req.MaxCapacity, req.IsBlocked, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrDuplicateSlot):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "DUPLICATE_SLOT", Message: err.Error()})
		case errors.Is(err, booking.ErrInvalidShift):
			c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "INVALID_SHIFT", Message: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, response.ErrorResponse{
				Code:    "DB_ERROR",
				Message: "Ошибка создания слота",
				Details: err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusCreated, slotToResponse(slot))
}

type UpdateSlotRequest struct {
	MaxCapacity *int    `json:"max_capacity"`
	IsBlocked   *bool   `json:"is_blocked"`
	Notes       *string `json:"notes"`
}

// UpdateSlotHandler обрабатывает изменение слота администратором
// @Summary		Изменение слота
// @Description	Меняет вместимость, блокировку или заметки слота; слоты не удаляются
// @Tags			slots
// @Accept			json
// @Produce		json
// @Param			id		path		string				true	"ID слота"
// @Param			slot	body		UpdateSlotRequest	true	"Изменяемые поля"
// @Security		BearerAuth
// @Success		200	{object}	SlotResponse			"Обновлённый слот"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (INVALID_SLOT_ID, VALIDATION_ERROR)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав администратора (NOT_AN_ADMIN)"
// @Failure		404	{object}	response.ErrorResponse	"Слот не найден (SLOT_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/slots/{id} [patch]
func UpdateSlotHandler(c *gin.Context) {
	slotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_SLOT_ID",
			Message: "Неверный идентификатор слота",
		})
		return
	}

	var slot models.Slot
	if err := storage.DB.First(&slot, slotID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "SLOT_NOT_FOUND",
			Message: "Слот не найден",
		})
		return
	}

	userID := c.GetUint("userID")
	if !booking.IsAdmin(userID, slot.CommitteeID) {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_AN_ADMIN",
			Message: "Требуются права администратора комиссии",
		})
		return
	}

	var req UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Ошибка валидации данных",
			Details: err.Error(),
		})
		return
	}

	updated, err := booking.UpdateSlot(uint(slotID), booking.SlotUpdate{
		MaxCapacity: req.MaxCapacity,
		IsBlocked:   req.IsBlocked,
		Notes:       req.Notes,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка обновления слота",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, slotToResponse(updated))
}

// SlotParticipant — участник, записанный на слот.
type SlotParticipant struct {
	UserID  uint   `json:"user_id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Status  string `json:"status"`
}

// SlotStatusResponse содержит состояние слота и список записанных участников.
type SlotStatusResponse struct {
	SlotID       uint              `json:"slot_id"`
	CommitteeID  uint              `json:"committee_id"`
	Date         string            `json:"date"`
	Shift        string            `json:"shift"`
	MaxCapacity  int               `json:"max_capacity"`
	IsBlocked    bool              `json:"is_blocked"`
	FreePlaces   int               `json:"free_places"`
	Participants []SlotParticipant `json:"participants"`
}

// GetSlotStatusHandler обрабатывает запрос состояния слота
// @Summary		Состояние слота
// @Description	Возвращает слот, свободные места и список записанных участников
// @Tags			slots
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID слота"
// @Security		BearerAuth
// @Success		200	{object}	SlotStatusResponse		"Состояние слота"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (INVALID_SLOT_ID)"
// @Failure		404	{object}	response.ErrorResponse	"Слот не найден (SLOT_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/slots/{id}/status [get]
func GetSlotStatusHandler(c *gin.Context) {
	slotID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_SLOT_ID",
			Message: "Неверный идентификатор слота",
		})
		return
	}

	var slot models.Slot
	if err := storage.DB.First(&slot, slotID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "SLOT_NOT_FOUND",
			Message: "Слот не найден",
		})
		return
	}

	var attendances []models.Attendance
	if err := storage.DB.
		Preload("User").
		Where("slot_id = ? AND status IN ?", slot.ID, []models.AttendanceStatus{models.StatusConfirmed, models.StatusAttended}).
		Order("registered_at ASC").
		Find(&attendances).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки записей слота",
			Details: err.Error(),
		})
		return
	}

	participants := make([]SlotParticipant, 0, len(attendances))
	confirmed := 0
	for _, a := range attendances {
		if a.Status == models.StatusConfirmed {
			confirmed++
		}
		participants = append(participants, SlotParticipant{
			UserID:  a.UserID,
			Name:    a.User.Name,
			Surname: a.User.Surname,
			Status:  string(a.Status),
		})
	}

	free := slot.MaxCapacity - confirmed
	if free < 0 {
		free = 0
	}

	c.JSON(http.StatusOK, SlotStatusResponse{
		SlotID:       slot.ID,
		CommitteeID:  slot.CommitteeID,
		Date:         slot.Date.Format("2006-01-02"),
		Shift:        string(slot.Shift),
		MaxCapacity:  slot.MaxCapacity,
		IsBlocked:    slot.IsBlocked,
		FreePlaces:   free,
		Participants: participants,
	})
}

// GetCommitteeSlotsHandler обрабатывает запрос слотов комиссии за период
// @Summary		Слоты комиссии
// @Description	Возвращает слоты комиссии в диапазоне дат
// @Tags			slots
// @Accept			json
// @Produce		json
// @Param			id			path		string	true	"ID комиссии"
// @Param			start_date	query		string	true	"Начало диапазона YYYY-MM-DD"
// @Param			end_date	query		string	true	"Конец диапазона YYYY-MM-DD"
// @Security		BearerAuth
// @Success		200	{array}		SlotResponse			"Список слотов"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR, INVALID_COMMITTEE_ID)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/committees/{id}/slots [get]
func GetCommitteeSlotsHandler(c *gin.Context) {
	committeeID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_COMMITTEE_ID",
			Message: "Неверный идентификатор комиссии",
		})
		return
	}

	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if startDate == "" || endDate == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Необходимо указать start_date и end_date",
		})
		return
	}

	var slots []models.Slot
	if err := storage.DB.
		Where("committee_id = ? AND date BETWEEN ? AND ?", committeeID, startDate, endDate).
		Order("date ASC, shift ASC").
		Find(&slots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки слотов",
			Details: err.Error(),
		})
		return
	}

	items := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		items = append(items, slotToResponse(&slots[i]))
	}

	c.JSON(http.StatusOK, items)
}

func slotToResponse(slot *models.Slot) SlotResponse {
	return SlotResponse{
		SlotID:      slot.ID,
		CommitteeID: slot.CommitteeID,
		Date:        slot.Date.Format("2006-01-02"),
		Shift:       string(slot.Shift),
		MaxCapacity: slot.MaxCapacity,
		IsBlocked:   slot.IsBlocked,
		Notes:       slot.Notes,
	}
}
