// Package chat appends messages to a case and relays them to live listeners.
package chat

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/docket-api/databases"
	"github.com/linesmerrill/docket-api/models"
)

// Topic is the event name chat packets are published under
const Topic = "chat"

// History modes. HistoryReset keeps the long standing behaviour of wiping the
// log down to the newest message once it has grown past the limit.
// HistoryWindow drops the oldest messages instead.
const (
	HistoryReset  = "reset"
	HistoryWindow = "window"
)

// DefaultLimit is the history cap when none is configured
const DefaultLimit = 10

// Publisher is a fire-and-forget notification sink
type Publisher interface {
	Publish(topic string, payload interface{})
}

// Packet is what listeners receive for each message
type Packet struct {
	Msg   string    `json:"msg"`
	Name  string    `json:"name"`
	Date  time.Time `json:"date"`
	Party string    `json:"party"`
}

// Service appends chat messages to cases
type Service struct {
	DB        databases.CaseDatabase
	Publisher Publisher
	Mode      string
	Limit     int
}

// Append adds text from party to c, saves the case and then publishes the
// message. A failed publish never undoes the save.
func (s Service) Append(ctx context.Context, c *models.Case, party, text string, date time.Time) (Packet, error) {
	p, ok := c.Party(party)
	if !ok {
		return Packet{}, fmt.Errorf("%w: %q", models.ErrInvalidRole, party)
	}

	msg := models.Message{
		Message: text,
		Name:    p.Person,
		Date:    primitive.NewDateTimeFromTime(date),
	}
	c.Messages = Cap(c.Messages, msg, s.Mode, s.limit())

	if err := s.DB.Save(ctx, c); err != nil {
		return Packet{}, fmt.Errorf("%w: %v", models.ErrPersistFailed, err)
	}

	packet := Packet{Msg: text, Name: p.Person, Date: date, Party: party}
	if s.Publisher != nil {
		s.Publisher.Publish(Topic, packet)
	}
	zap.S().Debugw("chat message appended",
		"docket", c.Docket,
		"party", party,
		"messages", len(c.Messages))
	return packet, nil
}

func (s Service) limit() int {
	if s.Limit <= 0 {
		return DefaultLimit
	}
	return s.Limit
}

// Cap adds msg to history under mode. In HistoryReset mode a history already
// longer than limit is replaced by msg alone, so it can hold limit+1 messages
// before the reset.
func Cap(history []models.Message, msg models.Message, mode string, limit int) []models.Message {
	if mode == HistoryWindow {
		out := append(history, msg)
		if len(out) > limit {
			out = append([]models.Message(nil), out[len(out)-limit:]...)
		}
		return out
	}
	if len(history) > limit {
		return []models.Message{msg}
	}
	return append(history, msg)
}
