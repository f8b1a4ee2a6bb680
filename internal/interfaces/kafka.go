package interfaces

import (
	"context"
	"errors"
	"orderconsumer/internal/models"
	"time"
)

var (
	ErrDeadLetterNotFound = errors.New("dead letter message not found")
	ErrNothingToReplay    = errors.New("dead letter message has no payload to replay")
)

type DeadLetterMessage struct {
	ID            string    `json:"id"`
	Sequence      int64     `json:"sequence"`
	OrderRef      string    `json:"order_reference"`
	OriginalTopic string    `json:"original_topic"`
	Partition     int       `json:"partition"`
	Offset        int64     `json:"offset"`
	Message       []byte    `json:"message"`
	Reason        string    `json:"reason"`
	Error         string    `json:"error"`
	Timestamp     time.Time `json:"timestamp"`
	RetryCount    int       `json:"retry_count"`
}

// A DeadLetter describes one message dropped by the consumer
type DeadLetter struct {
	OrderRef  string
	Topic     string
	Partition int
	Offset    int64
	Payload   []byte
	Reason    string
	Err       error
}

type DeadLetterQueue interface {
	Send(letter DeadLetter) error
	Get(limit int) ([]DeadLetterMessage, error)
	// Retry hands a copy of the message to replay and counts the attempt only if replay succeeds
	Retry(messageID string, replay func(DeadLetterMessage) error) (*DeadLetterMessage, error)
}

// An OutboundMessage is a record to be written to a topic
type OutboundMessage struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

type Publisher interface {
	Publish(ctx context.Context, msg OutboundMessage) error
}

type Codec interface {
	Encode(order *models.ItemOrdered) ([]byte, error)
	Decode(data []byte) (*models.ItemOrdered, error)
}

// A ConsumerControl exposes the operator controls of one running consumer
type ConsumerControl interface {
	GroupID() string
	Topic() string
	Pause()
	Resume()
	Paused() bool
}
