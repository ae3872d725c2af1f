package notifications

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jeevanpath/backend/pkg/config"
	"github.com/rs/zerolog/log"
)

// SimulatedChannel stands in for a telephony provider. Each attempt waits for
// the configured delay and then succeeds with the configured probability.
type SimulatedChannel struct {
	callDelay   time.Duration
	smsDelay    time.Duration
	successRate float64
	roll        func() float64
}

// NewSimulatedChannel creates a simulated channel from contact configuration
func NewSimulatedChannel(cfg config.ContactConfig) *SimulatedChannel {
	return &SimulatedChannel{
		callDelay:   cfg.CallDelay,
		smsDelay:    cfg.SMSDelay,
		successRate: cfg.SuccessRate,
		roll:        rand.Float64,
	}
}

// Call simulates a voice call to phone.
func (s *SimulatedChannel) Call(ctx context.Context, phone, message string) bool {
	return s.attempt(ctx, "call", s.callDelay, phone, message)
}

// SendSMS simulates an SMS to phone.
func (s *SimulatedChannel) SendSMS(ctx context.Context, phone, message string) bool {
	return s.attempt(ctx, "sms", s.smsDelay, phone, message)
}

func (s *SimulatedChannel) attempt(ctx context.Context, kind string, delay time.Duration, phone, message string) bool {
	if phone == "" {
		return false
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}

	ok := s.roll() < s.successRate
	log.Debug().
		Str("kind", kind).
		Str("phone", maskPhone(phone)).
		Int("message_length", len(message)).
		Bool("delivered", ok).
		Msg("simulated contact attempt")
	return ok
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "****" + phone[len(phone)-4:]
}
