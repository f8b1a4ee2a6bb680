package kafka

import (
	"fmt"
	"github.com/rs/zerolog"
	"orderconsumer/internal/interfaces"
	"sort"
	"sync"
	"time"
)

// An InMemoryDeadLetterQueue keeps the messages the consumer dropped for inspection and replay
type InMemoryDeadLetterQueue struct {
	mu        sync.RWMutex
	messages  map[string]*interfaces.DeadLetterMessage
	logger    *zerolog.Logger
	idCounter int64
	limit     int
}

// NewInMemoryDeadLetterQueue creates a dead letter queue holding at most limit messages, oldest dropped first
func NewInMemoryDeadLetterQueue(limit int, logger *zerolog.Logger) *InMemoryDeadLetterQueue {
	return &InMemoryDeadLetterQueue{
		messages: make(map[string]*interfaces.DeadLetterMessage),
		logger:   logger,
		limit:    limit,
	}
}

// Send adds a dropped message with its reason to the dead letter queue
func (dlq *InMemoryDeadLetterQueue) Send(letter interfaces.DeadLetter) error {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	dlq.idCounter++
	messageID := fmt.Sprintf("dlq_%d_%d", time.Now().Unix(), dlq.idCounter)

	errorMsg := ""
	if letter.Err != nil {
		errorMsg = letter.Err.Error()
	}

	dlqMessage := &interfaces.DeadLetterMessage{
		ID:            messageID,
		OrderRef:      letter.OrderRef,
		OriginalTopic: letter.Topic,
		Partition:     letter.Partition,
		Offset:        letter.Offset,
		Message:       make([]byte, len(letter.Payload)),
		Reason:        letter.Reason,
		Error:         errorMsg,
		Timestamp:     time.Now(),
		Sequence:      dlq.idCounter,
	}

	copy(dlqMessage.Message, letter.Payload)

	if dlq.limit > 0 && len(dlq.messages) >= dlq.limit {
		dlq.evictOldest()
	}
	dlq.messages[messageID] = dlqMessage

	dlq.logger.Error().
		Str("message_id", messageID).
		Str("order_reference", letter.OrderRef).
		Str("topic", letter.Topic).
		Int("partition", letter.Partition).
		Int64("offset", letter.Offset).
		Str("reason", letter.Reason).
		Str("error", errorMsg).
		Int("message_size", len(letter.Payload)).
		Msg("Message sent to dead letter queue")

	return nil
}

func (dlq *InMemoryDeadLetterQueue) evictOldest() {
	var oldest *interfaces.DeadLetterMessage
	for _, msg := range dlq.messages {
		if oldest == nil || msg.Sequence < oldest.Sequence {
			oldest = msg
		}
	}
	if oldest != nil {
		delete(dlq.messages, oldest.ID)
	}
}

// Get returns not more than limit messages from dead letter queue, oldest first
func (dlq *InMemoryDeadLetterQueue) Get(limit int) ([]interfaces.DeadLetterMessage, error) {
	return dlq.collect(limit, func(*interfaces.DeadLetterMessage) bool { return true }), nil
}

// GetByReason returns not more than limit messages that have specified reason
func (dlq *InMemoryDeadLetterQueue) GetByReason(reason string, limit int) ([]interfaces.DeadLetterMessage, error) {
	return dlq.collect(limit, func(msg *interfaces.DeadLetterMessage) bool { return msg.Reason == reason }), nil
}

func (dlq *InMemoryDeadLetterQueue) collect(limit int, keep func(*interfaces.DeadLetterMessage) bool) []interfaces.DeadLetterMessage {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()

	matched := make([]*interfaces.DeadLetterMessage, 0, len(dlq.messages))
	for _, msg := range dlq.messages {
		if keep(msg) {
			matched = append(matched, msg)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Sequence < matched[j].Sequence })

	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	messages := make([]interfaces.DeadLetterMessage, 0, len(matched))
	for _, msg := range matched {
		messages = append(messages, copyMessage(msg))
	}
	return messages
}

// Retry passes a copy of the message to replay outside the lock.
// The retry count grows only when replay succeeds.
func (dlq *InMemoryDeadLetterQueue) Retry(
	messageID string, replay func(interfaces.DeadLetterMessage) error,
) (*interfaces.DeadLetterMessage, error) {
	dlq.mu.RLock()
	message, ok := dlq.messages[messageID]
	var msgCopy interfaces.DeadLetterMessage
	if ok {
		msgCopy = copyMessage(message)
	}
	dlq.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrDeadLetterNotFound, messageID)
	}
	if len(msgCopy.Message) == 0 {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrNothingToReplay, messageID)
	}

	if err := replay(msgCopy); err != nil {
		return nil, fmt.Errorf("replay dead letter %s: %w", messageID, err)
	}

	dlq.mu.Lock()
	if message, ok := dlq.messages[messageID]; ok {
		message.RetryCount++
		msgCopy.RetryCount = message.RetryCount
	} else {
		msgCopy.RetryCount++
	}
	dlq.mu.Unlock()

	dlq.logger.Info().
		Str("message_id", messageID).
		Int("retry_count", msgCopy.RetryCount).
		Msg("Dead letter message replayed")

	return &msgCopy, nil
}

// GetMessageCount returns the total number of messages in the dead letter queue
func (dlq *InMemoryDeadLetterQueue) GetMessageCount() int {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()

	return len(dlq.messages)
}

// Clear removes all the messages from the dead letter queue
func (dlq *InMemoryDeadLetterQueue) Clear() {
	dlq.mu.Lock()
	defer dlq.mu.Unlock()

	dlq.messages = make(map[string]*interfaces.DeadLetterMessage)
}

// Statistics returns the statistics for the dead letter queue
func (dlq *InMemoryDeadLetterQueue) Statistics() map[string]any {
	dlq.mu.RLock()
	defer dlq.mu.RUnlock()

	stats := make(map[string]any)
	reasonCounts := make(map[string]int)
	topicCounts := make(map[string]int)

	for _, msg := range dlq.messages {
		reasonCounts[msg.Reason]++
		topicCounts[msg.OriginalTopic]++
	}

	stats["total_messages"] = len(dlq.messages)
	stats["messages_by_reason"] = reasonCounts
	stats["messages_by_topic"] = topicCounts

	return stats
}

func copyMessage(msg *interfaces.DeadLetterMessage) interfaces.DeadLetterMessage {
	msgCopy := *msg
	msgCopy.Message = make([]byte, len(msg.Message))
	copy(msgCopy.Message, msg.Message)
	return msgCopy
}
