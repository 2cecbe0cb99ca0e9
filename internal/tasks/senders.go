package tasks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"committee_backend/internal/logger"
	"committee_backend/internal/models"

	tele "gopkg.in/telebot.v3"
)

// PushPayload — содержимое напоминания.
type PushPayload struct {
	NotificationID string                 `json:"notification_id"`
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Data           map[string]interface{} `json:"data"`
}

// PushSender отправляет напоминание по одной push-подписке.
// Ошибка отправки логируется и не прерывает обход остальных пользователей.
type PushSender interface {
	Send(subscription models.PushSubscription, payload PushPayload) error
}

// Sender — активный отправитель push-уведомлений. Подменяется в тестах.
var Sender PushSender

// GatewaySender проксирует уведомления во внешний push-шлюз по HTTP.
type GatewaySender struct {
	URL    string
	Client *http.Client
}

func NewGatewaySender() *GatewaySender {
	return &GatewaySender{
		URL:    os.Getenv("PUSH_GATEWAY_URL"),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

type gatewayRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		P256dh   string `json:"p256dh"`
		Auth     string `json:"auth"`
	} `json:"subscription"`
	Payload PushPayload `json:"payload"`
}

func (s *GatewaySender) Send(subscription models.PushSubscription, payload PushPayload) error {
	if s.URL == "" {
		logger.Log.Debug("PUSH_GATEWAY_URL не задан, push-уведомление пропущено")
		return nil
	}

	var req gatewayRequest
	req.Subscription.Endpoint = subscription.Endpoint
	req.Subscription.P256dh = subscription.P256dh
	req.Subscription.Auth = subscription.Auth
	req.Payload = payload

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	resp, err := s.Client.Post(s.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push-шлюз вернул статус %d", resp.StatusCode)
	}
	return nil
}

var telegramBot *tele.Bot

// InitTelegram подключает телеграм-канал напоминаний, если задан токен.
func InitTelegram() {
	token := os.Getenv("TELEGRAM_TOKEN")
	if token == "" {
		logger.Log.Info("TELEGRAM_TOKEN не задан, телеграм-напоминания отключены")
		return
	}
	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		logger.Log.Error("Ошибка подключения телеграм-бота: ", err)
		return
	}
	telegramBot = bot
	logger.Log.Info("Телеграм-бот для напоминаний подключен")
}

func sendTelegram(chatID int64, payload PushPayload) error {
	if telegramBot == nil {
		return nil
	}
	text := payload.Title + "\n" + payload.Body
	_, err := telegramBot.Send(&tele.Chat{ID: chatID}, text)
	return err
}
