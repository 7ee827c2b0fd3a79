// Package mailservice sends transactional email in response to broker
// events.
package mailservice

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/exp/rand"

	"github.com/sushihentaime/markpress/internal/common"
)

func NewMailService(mb common.MessageConsumer, host, username, password, sender string, port int, logger *slog.Logger) *MailService {
	ctx, cancel := context.WithCancel(context.Background())
	return &MailService{
		mb:     mb,
		m:      NewMailer(host, port, username, password, sender, NewTemplate()),
		logger: logger,
		sleep:  time.Sleep,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SendWelcomeEmail consumes user.created events and mails each new user. It
// returns once the consumer is registered; delivery runs until Close.
func (s *MailService) SendWelcomeEmail() {
	msgs, err := s.mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	if err != nil {
		s.logger.Error("could not consume message", slog.String("error", err.Error()))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				s.handleUserCreated(msg)

			case <-s.ctx.Done():
				s.logger.Info("stopping SendWelcomeEmail due to context cancellation")
				return
			}
		}
	}()
}

// handleUserCreated always acks: a message that cannot be decoded or sent
// after all retries is dropped rather than redelivered.
func (s *MailService) handleUserCreated(msg amqp.Delivery) {
	defer msg.Ack(false)

	var data common.UserCreatedMessage
	if err := json.Unmarshal(msg.Body, &data); err != nil {
		s.logger.Error("could not unmarshal message", slog.String("error", err.Error()))
		return
	}

	payload := WelcomeData{Name: data.Name, Email: data.Email}

	// exponential backoff with full jitter
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := s.m.send(data.Email, payload, welcomeTemplate)
		if err == nil {
			s.logger.Info("welcome email sent", slog.String("email", data.Email))
			return
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := time.Duration(rand.Int63n(int64(baseDelay) << uint(attempt)))
		s.logger.Info("delaying welcome email", slog.String("email", data.Email), slog.Int("attempt", attempt), slog.Duration("delay", delay))

		if s.ctx.Err() != nil {
			return
		}
		s.sleep(delay)
	}

	s.logger.Error("could not send welcome email", slog.String("email", data.Email))
}

// Close stops the consumer loop and waits for it to exit.
func (s *MailService) Close() {
	s.cancel()
	s.wg.Wait()
}
