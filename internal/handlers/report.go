package handlers

import (
	"net/http"
	"strconv"

	"committee_backend/internal/booking"
	"committee_backend/internal/models"
	"committee_backend/internal/response"
	"committee_backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// ReportRow — одна запись отчёта посещаемости.
type ReportRow struct {
	UserID  uint   `json:"user_id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Date    string `json:"date"`
	Shift   string `json:"shift"`
	Status  string `json:"status"`
}

// ReportUserTotal — итог по одному участнику за период.
type ReportUserTotal struct {
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Shifts   int    `json:"shifts"`   // confirmed + attended
	Attended int    `json:"attended"` // только attended
}

// AttendanceReportResponse — отчёт посещаемости комиссии за период.
type AttendanceReportResponse struct {
	CommitteeID uint              `json:"committee_id"`
	StartDate   string            `json:"start_date"`
	EndDate     string            `json:"end_date"`
	Rows        []ReportRow       `json:"rows"`
	Totals      []ReportUserTotal `json:"totals"`
}

// GetAttendanceReportHandler обрабатывает запрос отчёта посещаемости
// @Summary		Отчёт посещаемости
// @Description	Возвращает записи confirmed/attended по комиссии за период с итогами по участникам; только для администраторов
// @Tags			reports
// @Accept			json
// @Produce		json
// @Param			committee_id	query		string	true	"ID комиссии"
// @Param			start_date		query		string	true	"Начало периода YYYY-MM-DD"
// @Param			end_date		query		string	true	"Конец периода YYYY-MM-DD"
// @Security		BearerAuth
// @Success		200	{object}	AttendanceReportResponse	"Отчёт"
// @Failure		400	{object}	response.ErrorResponse	"Ошибка валидации (VALIDATION_ERROR)"
// @Failure		403	{object}	response.ErrorResponse	"Нет прав администратора (NOT_AN_ADMIN)"
// @Failure		500	{object}	response.ErrorResponse	"Ошибка сервера (DB_ERROR)"
// @Router			/api/attendance-report [get]
func GetAttendanceReportHandler(c *gin.Context) {
	committeeIDStr := c.Query("committee_id")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")
	if committeeIDStr == "" || startDate == "" || endDate == "" {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Необходимо указать committee_id, start_date и end_date",
		})
		return
	}
	committeeID, err := strconv.Atoi(committeeIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Неверный идентификатор комиссии",
		})
		return
	}

	userID := c.GetUint("userID")
	if !booking.IsAdmin(userID, uint(committeeID)) {
		c.JSON(http.StatusForbidden, response.ErrorResponse{
			Code:    "NOT_AN_ADMIN",
			Message: "Отчёт доступен только администраторам комиссии",
		})
		return
	}

	// Слоты комиссии за период, затем их записи и пользователи.
	var slots []models.Slot
	if err := storage.DB.
		Where("committee_id = ? AND date BETWEEN ? AND ?", committeeID, startDate, endDate).
		Find(&slots).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки слотов",
			Details: err.Error(),
		})
		return
	}

	report := AttendanceReportResponse{
		CommitteeID: uint(committeeID),
		StartDate:   startDate,
		EndDate:     endDate,
		Rows:        []ReportRow{},
		Totals:      []ReportUserTotal{},
	}
	if len(slots) == 0 {
		c.JSON(http.StatusOK, report)
		return
	}

	slotMap := make(map[uint]models.Slot)
	var slotIDs []uint
	for _, s := range slots {
		slotMap[s.ID] = s
		slotIDs = append(slotIDs, s.ID)
	}

	var attendances []models.Attendance
	if err := storage.DB.
		Preload("User").
		Where("slot_id IN ? AND status IN ?", slotIDs,
			[]models.AttendanceStatus{models.StatusConfirmed, models.StatusAttended}).
		Find(&attendances).Error; err != nil {
		c.JSON(http.StatusInternalServerError, response.ErrorResponse{
			Code:    "DB_ERROR",
			Message: "Ошибка загрузки записей",
			Details: err.Error(),
		})
		return
	}

	totals := make(map[uint]*ReportUserTotal)
	for _, a := range attendances {
		slot := slotMap[a.SlotID]
		report.Rows = append(report.Rows, ReportRow{
			UserID:  a.UserID,
			Name:    a.User.Name,
			Surname: a.User.Surname,
			Date:    slot.Date.Format("2006-01-02"),
			Shift:   string(slot.Shift),
			Status:  string(a.Status),
		})

		total, ok := totals[a.UserID]
		if !ok {
			total = &ReportUserTotal{
				UserID:  a.UserID,
				Name:    a.User.Name,
				Surname: a.User.Surname,
			}
			totals[a.UserID] = total
		}
		total.Shifts++
		if a.Status == models.StatusAttended {
			total.Attended++
		}
	}
	for _, total := range totals {
		report.Totals = append(report.Totals, *total)
	}

	c.JSON(http.StatusOK, report)
}
