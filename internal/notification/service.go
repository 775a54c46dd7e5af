package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"sore/internal/logger"
	"sore/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

const (
	EventBookingRequested = "booking_requested"
	EventBookingAccepted  = "booking_accepted"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventBookingCompleted = "booking_completed"
	EventBookingDisputed  = "booking_disputed"
	EventBookingExpired   = "booking_expired"
)

type Event struct {
	Type      string    `json:"type"`
	BookingID int       `json:"booking_id"`
	To        string    `json:"to"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Tries     int       `json:"tries"`
	Created   time.Time `json:"created"`
}

// Publisher is what the booking service depends on. Publishing is
// best-effort: a failed publish is logged, never surfaced as a booking
// error.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Service struct {
	redis    *redis.Client
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		}),
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

func (s *Service) Publish(ctx context.Context, e Event) error {
	e.Created = time.Now()

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	if err := s.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		metrics.RecordNotification(e.Type, "queue_failed")
		logger.Errorf("Failed to queue %s notification for booking %d: %v", e.Type, e.BookingID, err)
		return err
	}

	logger.Infof("Notification queued: %s for booking %d", e.Type, e.BookingID)
	return nil
}

func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	result, err := s.redis.BRPop(ctx, 2*time.Second, queueKey).Result()
	if err != nil {
		return
	}

	var e Event
	if err := json.Unmarshal([]byte(result[1]), &e); err != nil {
		logger.Errorf("Bad notification payload: %v", err)
		return
	}

	if length, err := s.redis.LLen(ctx, queueKey).Result(); err == nil {
		metrics.NotificationQueueLength.Set(float64(length))
	}

	e.Tries++
	if err := s.sendNow(e); err != nil {
		logger.Errorf("Failed to send %s notification for booking %d: %v", e.Type, e.BookingID, err)

		if e.Tries < maxTries {
			time.Sleep(5 * time.Second)
			data, _ := json.Marshal(e)
			s.redis.LPush(context.Background(), queueKey, data)
			return
		}

		metrics.RecordNotification(e.Type, "failed")
		s.saveFailed(e, err)
		return
	}

	metrics.RecordNotification(e.Type, "sent")
	logger.Infof("Notification sent to %s for booking %d", e.To, e.BookingID)
}

func (s *Service) sendNow(e Event) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", e.To)
	message += fmt.Sprintf("Subject: %s\r\n", e.Subject)
	message += "\r\n" + e.Body

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{e.To}, []byte(message))
}

func (s *Service) saveFailed(e Event, sendErr error) {
	failed := map[string]interface{}{
		"event": e,
		"error": sendErr.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedQueueKey, data)
	logger.Errorf("Notification moved to failed queue: booking %d", e.BookingID)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Close() error {
	return s.redis.Close()
}

// BookingEvent builds the event for a booking status change addressed to
// the party that did not initiate it.
func BookingEvent(eventType string, bookingID int, recipientEmail, recipientName, detail string) Event {
	subjects := map[string]string{
		EventBookingRequested: "New booking request",
		EventBookingAccepted:  "Your booking was accepted",
		EventBookingRejected:  "Your booking was rejected",
		EventBookingCancelled: "Booking cancelled",
		EventBookingCompleted: "Session completed",
		EventBookingDisputed:  "Booking disputed",
		EventBookingExpired:   "Booking expired",
	}

	subject, ok := subjects[eventType]
	if !ok {
		subject = "Booking update"
	}

	body := fmt.Sprintf(`Hi %s,

%s

Booking: #%d

- SoRe Team`, recipientName, detail, bookingID)

	return Event{
		Type:      eventType,
		BookingID: bookingID,
		To:        recipientEmail,
		Name:      recipientName,
		Subject:   subject,
		Body:      body,
	}
}
