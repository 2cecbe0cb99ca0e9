package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"committee_backend/internal/booking"
	"committee_backend/internal/models"
	"committee_backend/internal/response"
	"committee_backend/internal/storage"
	"committee_backend/internal/ws"

	"github.com/gin-gonic/gin"
)

type MarkAttendanceRequest struct {
	CommitteeID uint   `json:"committee_id" binding:"required"`
	Date        string `json:"date" binding:"required"` // YYYY-MM-DD
	Shift       string `json:"shift" binding:"required"`
}

type AttendanceResponse struct {
	AttendanceID uint   `json:"attendance_id"`
	SlotID       uint   `json:"slot_id"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
}

// bookingError сопоставляет ошибки ядра бронирования кодам API.
func bookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidShift):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "INVALID_SHIFT", Message: err.Error()})
	case errors.Is(err, booking.ErrSlotBlocked):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "SLOT_BLOCKED", Message: err.Error()})
	case errors.Is(err, booking.ErrCapacityExceeded):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "CAPACITY_EXCEEDED", Message: err.Error()})
	case errors.Is(err, booking.ErrAlreadyRegistered):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "ALREADY_REGISTERED", Message: err.Error()})
	case errors.Is(err, booking.ErrInvalidState):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "INVALID_STATE", Message: err.Error()})
	case errors.Is(err, booking.ErrWrongDay):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "WRONG_DAY", Message: err.Error()})
	case errors.Is(err, booking.ErrOutsideWindow):
		c.JSON(http.StatusBadRequest, response.ErrorResponse{Code: "OUTSIDE_WINDOW", Message: err.Error()})
	case errors.Is(err, booking.ErrNotAMember):
		c.JSON(http.StatusForbidden, response.ErrorResponse{Code: "NOT_A_MEMBER", Message: err.Error()})
	case errors.Is(err, booking.ErrNotOwner):
		c.JSON(http.StatusForbidden, response.ErrorResponse{Code: "NOT_OWNER", Message: err.Error()})
	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Code: "ATTENDANCE_NOT_FOUND", Message: err.Error()})
	case errors.Is(err, booking.ErrCommitteeNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse{Code: "COMMITTEE_NOT_FOUND", Message: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Внутренняя ошибка сервера",
			Details: err.Error(),
		})
	}
}

// MarkAttendanceHandler обрабатывает запись на смену
// @Summary		Запись на смену
// @Description	Записывает пользователя на смену комиссии; слот создаётся автоматически при первой записи
// @Tags			attendance
// @Accept			json
// @Produce		json
// @Param			attendance	body		MarkAttendanceRequest	true	"Комиссия, дата и смена"
// @Security		BearerAuth
// @Success		201	{object}	AttendanceResponse		"Запись создана"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка записи (VALIDATION_ERROR, INVALID_SHIFT, SLOT_BLOCKED, CAPACITY_EXCEEDED, ALREADY_REGISTERED)"
// @Failure		403	{object}	response.ErrorResponse	"Нет членства в комиссии (NOT_A_MEMBER)"
// @Failure		404	{object}	response.ErrorResponse	"Комиссия не найдена (COMMITTEE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendance [post]
func MarkAttendanceHandler(c *gin.Context) {
	var req MarkAttendanceRequest
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
	attendance, err := booking.BookAttendance(userID, req.CommitteeID, date, models.Shift(req.Shift))
	if err != nil {
		bookingError(c, err)
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: "attendance_marked",
		SlotID:    strconv.Itoa(int(attendance.SlotID)),
		Data: map[string]interface{}{
			"user_id":       userID,
			"attendance_id": attendance.ID,
		},
	})

	c.JSON(http.StatusCreated, AttendanceResponse{
		AttendanceID: attendance.ID,
		SlotID:       attendance.SlotID,
		Status:       string(attendance.Status),
		RegisteredAt: attendance.RegisteredAt.Format(time.RFC3339),
	})
}

// CancelAttendanceHandler обрабатывает отмену записи
// @Summary		Отмена записи на смену
// @Description	Отменяет подтверждённую запись; строка сохраняется и может быть реактивирована повторной записью
// @Tags			attendance
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID записи"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Запись отменена"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка отмены (INVALID_ATTENDANCE_ID, INVALID_STATE)"
// @Failure		403	{object}	response.ErrorResponse	"Чужая запись (NOT_OWNER)"
// @Failure		404	{object}	response.ErrorResponse	"Запись не найдена (ATTENDANCE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendances/{id} [delete]
func CancelAttendanceHandler(c *gin.Context) {
	attendanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ATTENDANCE_ID",
			Message: "Неверный идентификатор записи",
		})
		return
	}

	userID := c.GetUint("userID")
	attendance, err := booking.CancelAttendance(uint(attendanceID), userID)
	if err != nil {
		bookingError(c, err)
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: "attendance_cancelled",
		SlotID:    strconv.Itoa(int(attendance.SlotID)),
		Data: map[string]interface{}{
			"user_id":       userID,
			"attendance_id": attendance.ID,
		},
	})

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Запись успешно отменена"})
}

// ConfirmAttendanceHandler обрабатывает подтверждение присутствия
// @Summary		Подтверждение присутствия на смене
// @Description	Переводит запись в статус attended; доступно только в день смены внутри её временного окна
// @Tags			attendance
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID записи"
// @Security		BearerAuth
// @Success		200	{object}	AttendanceResponse		"Присутствие подтверждено"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка подтверждения (INVALID_ATTENDANCE_ID, INVALID_STATE, WRONG_DAY, OUTSIDE_WINDOW)"
// @Failure		403	{object}	response.ErrorResponse	"Чужая запись (NOT_OWNER)"
// @Failure		404	{object}	response.ErrorResponse	"Запись не найдена (ATTENDANCE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendances/{id}/confirm [patch]
func ConfirmAttendanceHandler(c *gin.Context) {
	attendanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ATTENDANCE_ID",
			Message: "Неверный идентификатор записи",
		})
		return
	}

	userID := c.GetUint("userID")
	attendance, err := booking.ConfirmAttendance(uint(attendanceID), userID)
	if err != nil {
		bookingError(c, err)
		return
	}

	ws.HubInstance.BroadcastWSMessage(ws.WSMessage{
		EventType: "attendance_confirmed",
		SlotID:    strconv.Itoa(int(attendance.SlotID)),
		Data: map[string]interface{}{
			"user_id":       userID,
			"attendance_id": attendance.ID,
		},
	})

	c.JSON(http.StatusOK, AttendanceResponse{
		AttendanceID: attendance.ID,
		SlotID:       attendance.SlotID,
		Status:       string(attendance.Status),
		RegisteredAt: attendance.RegisteredAt.Format(time.RFC3339),
	})
}

// UserAttendanceItem — запись пользователя с данными слота и комиссии.
type UserAttendanceItem struct {
	AttendanceID  uint   `json:"attendance_id"`
	SlotID        uint   `json:"slot_id"`
	CommitteeID   uint   `json:"committee_id"`
	CommitteeName string `json:"committee_name"`
	Date          string `json:"date"`
	Shift         string `json:"shift"`
	Status        string `json:"status"`
	RegisteredAt  string `json:"registered_at"`
}

// GetMyAttendancesHandler обрабатывает запрос списка своих записей
// @Summary		Список своих записей на смены
// @Description	Возвращает записи пользователя с данными слотов и комиссий
// @Tags			profile
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		UserAttendanceItem		"Список записей"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/profile/attendances [get]
func GetMyAttendancesHandler(c *gin.Context) {
	userID := c.GetUint("userID")

	var attendances []models.Attendance
	if err := storage.DB.
		Where("user_id = ?", userID).
		Order("registered_at DESC").
		Find(&attendances).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки записей пользователя",
			Details: err.Error(),
		})
		return
	}

	if len(attendances) == 0 {
		c.JSON(http.StatusOK, []UserAttendanceItem{})
		return
	}

	var slotIDs []uint
	for _, a := range attendances {
		slotIDs = append(slotIDs, a.SlotID)
	}

	var slots []models.Slot
	if err := storage.DB.Where("id IN ?", slotIDs).Find(&slots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки слотов",
			Details: err.Error(),
		})
		return
	}

	slotMap := make(map[uint]models.Slot)
	var committeeIDs []uint
	for _, s := range slots {
		slotMap[s.ID] = s
		committeeIDs = append(committeeIDs, s.CommitteeID)
	}

	var committees []models.Committee
	if err := storage.DB.Where("id IN ?", committeeIDs).Find(&committees).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки комиссий",
			Details: err.Error(),
		})
		return
	}

	committeeMap := make(map[uint]models.Committee)
	for _, cm := range committees {
		committeeMap[cm.ID] = cm
	}

	items := make([]UserAttendanceItem, 0, len(attendances))
	for _, a := range attendances {
		slot := slotMap[a.SlotID]
		items = append(items, UserAttendanceItem{
			AttendanceID:  a.ID,
			SlotID:        a.SlotID,
			CommitteeID:   slot.CommitteeID,
			CommitteeName: committeeMap[slot.CommitteeID].Name,
			Date:          slot.Date.Format("2006-01-02"),
			Shift:         string(slot.Shift),
			Status:        string(a.Status),
			RegisteredAt:  a.RegisteredAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, items)
}

// MarkAbsentHandler проставляет неявку (административное действие)
// @Summary		Отметка неявки
// @Description	Администратор комиссии помечает подтверждённую запись как неявку
// @Tags			attendance
// @Accept			json
// @Produce		json
// @Param			id	path		string	true	"ID записи"
// @Security		BearerAuth
// @Success		200	{object}	response.SuccessResponse	"Неявка проставлена"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка (INVALID_ATTENDANCE_ID, INVALID_STATE)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав администратора (NOT_AN_ADMIN)"
// @Failure		404	{object}	response.ErrorResponse	"Запись не найдена (ATTENDANCE_NOT_FOUND)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendances/{id}/absent [patch]
func MarkAbsentHandler(c *gin.Context) {
	attendanceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_ATTENDANCE_ID",
			Message: "Неверный идентификатор записи",
		})
		return
	}

	var attendance models.Attendance
	if err := storage.DB.First(&attendance, attendanceID).Error; err != nil {
		c.JSON(http.StatusNotFound, response.ErrorResponse{
			Code:    "ATTENDANCE_NOT_FOUND",
			Message: "Запись не найдена",
		})
		return
	}

	var slot models.Slot
	if err := storage.DB.First(&slot, attendance.SlotID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки слота",
			Details: err.Error(),
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

	if attendance.Status != models.StatusConfirmed {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "INVALID_STATE",
			Message: "Неявку можно проставить только для подтверждённой записи",
			Details: fmt.Sprintf("текущий статус: %s", attendance.Status),
		})
		return
	}

	attendance.Status = models.StatusAbsent
	if err := storage.DB.Save(&attendance).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка обновления записи",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse{Message: "Неявка проставлена"})
}
