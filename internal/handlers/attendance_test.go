package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"committee_backend/internal/models"
	"committee_backend/internal/storage"
	"committee_backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

var hubOnce sync.Once

func setupHandlersTest(t *testing.T) {
	t.Helper()
	if os.Getenv("TEST_DB_HOST") == "" {
		_ = godotenv.Load("../../.env")
	}
	if os.Getenv("TEST_DB_HOST") == "" {
		t.Skip("TEST_DB_HOST не задан, пропускаем интеграционный тест")
	}

	storage.ConnectTestingDatabase()
	if err := storage.DB.AutoMigrate(
		&models.User{},
		&models.Committee{},
		&models.CommitteeMember{},
		&models.Slot{},
		&models.Attendance{},
	); err != nil {
		t.Fatal("Ошибка при миграции... ", err.Error())
	}
	storage.DB.Exec("TRUNCATE TABLE users, committees, committee_members, slots, attendances RESTART IDENTITY CASCADE;")

	hubOnce.Do(func() {
		go ws.HubInstance.Run()
	})
}

// testAuthMiddleware подставляет пользователя из заголовка X-Test-UserID.
func testAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.GetHeader("X-Test-UserID"))
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("userID", uint(id))
		c.Next()
	}
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	api := r.Group("/api")
	api.Use(testAuthMiddleware())
	{
		api.POST("/attendance", MarkAttendanceHandler)
		api.DELETE("/attendances/:id", CancelAttendanceHandler)
		api.PATCH("/attendances/:id/confirm", ConfirmAttendanceHandler)
		api.PATCH("/attendances/:id/absent", MarkAbsentHandler)
		api.GET("/profile/attendances", GetMyAttendancesHandler)
		api.GET("/attendance-report", GetAttendanceReportHandler)
		api.GET("/slots/:id/ws", ws.SlotWebSocketHandler)
	}
	return r
}

func createUser(t *testing.T, name string) *models.User {
	t.Helper()
	user := models.User{
		Name:         name,
		Surname:      "Тестов",
		Email:        fmt.Sprintf("%s_%d@example.com", name, time.Now().UnixNano()),
		PasswordHash: "hashed123",
	}
	assert.NoError(t, storage.DB.Create(&user).Error)
	return &user
}

func createCommittee(t *testing.T, maxPerShift int) *models.Committee {
	t.Helper()
	committee := models.Committee{
		Name:           "Тестовая комиссия",
		MorningStart:   "09:00",
		MorningEnd:     "13:00",
		AfternoonStart: "14:00",
		AfternoonEnd:   "18:00",
		MaxPerShift:    maxPerShift,
	}
	assert.NoError(t, storage.DB.Create(&committee).Error)
	return &committee
}

func addMember(t *testing.T, userID, committeeID uint, role string) {
	t.Helper()
	member := models.CommitteeMember{
		CommitteeID: committeeID,
		UserID:      userID,
		Role:        role,
		IsActive:    true,
	}
	assert.NoError(t, storage.DB.Create(&member).Error)
}

func doRequest(r *gin.Engine, method, path string, userID uint, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-UserID", strconv.Itoa(int(userID)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAttendanceFlow(t *testing.T) {
	setupHandlersTest(t)
	r := setupTestRouter()

	user := createUser(t, "Иван")
	committee := createCommittee(t, 5)
	addMember(t, user.ID, committee.ID, models.RoleMember)

	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	body := MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "morning"}

	// Запись на смену.
	w := doRequest(r, "POST", "/api/attendance", user.ID, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created AttendanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "confirmed", created.Status)
	assert.NotZero(t, created.SlotID)

	// Повторная запись на тот же слот.
	w = doRequest(r, "POST", "/api/attendance", user.ID, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ALREADY_REGISTERED")

	// Отмена записи.
	w = doRequest(r, "DELETE", fmt.Sprintf("/api/attendances/%d", created.AttendanceID), user.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Повторная отмена уже отменённой записи.
	w = doRequest(r, "DELETE", fmt.Sprintf("/api/attendances/%d", created.AttendanceID), user.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_STATE")

	// Повторная запись реактивирует ту же строку.
	w = doRequest(r, "POST", "/api/attendance", user.ID, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rebooked AttendanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &rebooked))
	assert.Equal(t, created.AttendanceID, rebooked.AttendanceID)

	var count int64
	storage.DB.Model(&models.Attendance{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Equal(t, int64(1), count, "История должна храниться в одной строке")

	// Список своих записей.
	w = doRequest(r, "GET", "/api/profile/attendances", user.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var items []UserAttendanceItem
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	assert.Len(t, items, 1)
	assert.Equal(t, committee.Name, items[0].CommitteeName)
	assert.Equal(t, "confirmed", items[0].Status)
}

func TestMarkAttendanceErrors(t *testing.T) {
	setupHandlersTest(t)
	r := setupTestRouter()

	member := createUser(t, "Пётр")
	outsider := createUser(t, "Чужой")
	committee := createCommittee(t, 5)
	addMember(t, member.ID, committee.ID, models.RoleMember)

	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")

	// Не участник комиссии.
	w := doRequest(r, "POST", "/api/attendance", outsider.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "morning"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_A_MEMBER")

	// Несуществующая комиссия.
	w = doRequest(r, "POST", "/api/attendance", member.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID + 100, Date: date, Shift: "morning"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "COMMITTEE_NOT_FOUND")

	// full_day нельзя бронировать напрямую.
	w = doRequest(r, "POST", "/api/attendance", member.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "full_day"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SHIFT")

	// Кривая дата.
	w = doRequest(r, "POST", "/api/attendance", member.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID, Date: "02.06.2025", Shift: "morning"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	// Отмена чужой записи.
	w = doRequest(r, "POST", "/api/attendance", member.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "morning"})
	assert.Equal(t, http.StatusCreated, w.Code)
	var created AttendanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doRequest(r, "DELETE", fmt.Sprintf("/api/attendances/%d", created.AttendanceID), outsider.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_OWNER")
}

func TestCapacityExceededOverHTTP(t *testing.T) {
	setupHandlersTest(t)
	r := setupTestRouter()

	committee := createCommittee(t, 1)
	first := createUser(t, "Первый")
	second := createUser(t, "Второй")
	addMember(t, first.ID, committee.ID, models.RoleMember)
	addMember(t, second.ID, committee.ID, models.RoleMember)

	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	body := MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "afternoon"}

	w := doRequest(r, "POST", "/api/attendance", first.ID, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doRequest(r, "POST", "/api/attendance", second.ID, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "CAPACITY_EXCEEDED")
}

func TestAttendanceReportAccess(t *testing.T) {
	setupHandlersTest(t)
	r := setupTestRouter()

	committee := createCommittee(t, 5)
	admin := createUser(t, "Админ")
	member := createUser(t, "Участник")
	addMember(t, admin.ID, committee.ID, models.RoleAdmin)
	addMember(t, member.ID, committee.ID, models.RoleMember)

	date := time.Now().AddDate(0, 0, 2)
	w := doRequest(r, "POST", "/api/attendance", member.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID, Date: date.Format("2006-01-02"), Shift: "morning"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	start := date.AddDate(0, 0, -1).Format("2006-01-02")
	end := date.AddDate(0, 0, 1).Format("2006-01-02")
	reportPath := fmt.Sprintf("/api/attendance-report?committee_id=%d&start_date=%s&end_date=%s",
		committee.ID, start, end)

	// Обычному участнику отчёт недоступен.
	w = doRequest(r, "GET", reportPath, member.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_AN_ADMIN")

	w = doRequest(r, "GET", reportPath, admin.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report AttendanceReportResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Len(t, report.Rows, 1)
	assert.Len(t, report.Totals, 1)
	assert.Equal(t, member.ID, report.Totals[0].UserID)
	assert.Equal(t, 1, report.Totals[0].Shifts)
	assert.Equal(t, 0, report.Totals[0].Attended)
}

func TestMarkAbsent(t *testing.T) {
	setupHandlersTest(t)
	r := setupTestRouter()

	committee := createCommittee(t, 5)
	admin := createUser(t, "Админ")
	member := createUser(t, "Участник")
	addMember(t, admin.ID, committee.ID, models.RoleAdmin)
	addMember(t, member.ID, committee.ID, models.RoleMember)

	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	w := doRequest(r, "POST", "/api/attendance", member.ID,
		MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "morning"})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created AttendanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	absentPath := fmt.Sprintf("/api/attendances/%d/absent", created.AttendanceID)

	// Участник без прав администратора.
	w = doRequest(r, "PATCH", absentPath, member.ID, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_AN_ADMIN")

	w = doRequest(r, "PATCH", absentPath, admin.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var attendance models.Attendance
	assert.NoError(t, storage.DB.First(&attendance, created.AttendanceID).Error)
	assert.Equal(t, models.StatusAbsent, attendance.Status)

	// Неявку нельзя проставить повторно.
	w = doRequest(r, "PATCH", absentPath, admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_STATE")
}

func TestSlotWebSocketNotifications(t *testing.T) {
	setupHandlersTest(t)
	r := setupTestRouter()

	committee := createCommittee(t, 5)
	first := createUser(t, "Первый")
	second := createUser(t, "Второй")
	addMember(t, first.ID, committee.ID, models.RoleMember)
	addMember(t, second.ID, committee.ID, models.RoleMember)

	date := time.Now().AddDate(0, 0, 2).Format("2006-01-02")
	body := MarkAttendanceRequest{CommitteeID: committee.ID, Date: date, Shift: "morning"}

	// Первая запись создаёт слот, по которому пойдёт подписка.
	w := doRequest(r, "POST", "/api/attendance", first.ID, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created AttendanceResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	server := httptest.NewServer(r)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") +
		fmt.Sprintf("/api/slots/%d/ws", created.SlotID)
	header := http.Header{}
	header.Set("X-Test-UserID", strconv.Itoa(int(first.ID)))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	assert.NoError(t, err)
	defer conn.Close()

	// Даём хабу время зарегистрировать клиента.
	time.Sleep(100 * time.Millisecond)

	w = doRequest(r, "POST", "/api/attendance", second.ID, body)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, message, err := conn.ReadMessage()
	assert.NoError(t, err)

	var event ws.WSMessage
	assert.NoError(t, json.Unmarshal(message, &event))
	assert.Equal(t, "attendance_marked", event.EventType)
	assert.Equal(t, strconv.Itoa(int(created.SlotID)), event.SlotID)
}
