package routing

import (
	"context"
	"github.com/rs/zerolog"
	"orderconsumer/internal/codec"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/ledger"
	"orderconsumer/internal/models"
	"sync"
	"testing"
)

var testChain = TopicChain{
	Main:  "chd-item-ordered",
	Retry: "chd-item-ordered-retry",
	Error: "chd-item-ordered-error",
}

// A scriptedProcessor returns results in order, then succeeds
type scriptedProcessor struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (p *scriptedProcessor) Process(ctx context.Context, order *models.ItemOrdered) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.calls
	p.calls++
	if i < len(p.results) {
		return p.results[i]
	}
	return nil
}

func (p *scriptedProcessor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// A recordingPublisher keeps every published message
type recordingPublisher struct {
	mu       sync.Mutex
	messages []interfaces.OutboundMessage
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg interfaces.OutboundMessage) error {
	if p.err != nil {
		return p.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) Published() []interfaces.OutboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]interfaces.OutboundMessage(nil), p.messages...)
}

func (p *recordingPublisher) Topics() []string {
	var topics []string
	for _, m := range p.Published() {
		topics = append(topics, m.Topic)
	}
	return topics
}

// A recordingDeadLetters keeps every dead letter
type recordingDeadLetters struct {
	mu      sync.Mutex
	letters []interfaces.DeadLetter
}

func (d *recordingDeadLetters) Send(letter interfaces.DeadLetter) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.letters = append(d.letters, letter)
	return nil
}

func (d *recordingDeadLetters) Get(limit int) ([]interfaces.DeadLetterMessage, error) {
	return nil, nil
}

func (d *recordingDeadLetters) Retry(
	messageID string, replay func(interfaces.DeadLetterMessage) error,
) (*interfaces.DeadLetterMessage, error) {
	return nil, nil
}

func (d *recordingDeadLetters) Reasons() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var reasons []string
	for _, l := range d.letters {
		reasons = append(reasons, l.Reason)
	}
	return reasons
}

type countingPauser struct {
	mu     sync.Mutex
	pauses int
}

func (p *countingPauser) Pause() {
	p.mu.Lock()
	p.pauses++
	p.mu.Unlock()
}

func (p *countingPauser) Pauses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses
}

type testEnv struct {
	router      *Router
	processor   *scriptedProcessor
	publisher   *recordingPublisher
	deadLetters *recordingDeadLetters
	ledger      *ledger.Ledger
	pauser      *countingPauser
	codec       *codec.AvroCodec
}

func newTestEnv(t *testing.T, recoveryOffset int64, results ...error) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	c, err := codec.NewAvroCodec()
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	l, err := ledger.NewLedger(3)
	if err != nil {
		t.Fatalf("error: %v", err)
	}

	env := &testEnv{
		processor:   &scriptedProcessor{results: results},
		publisher:   &recordingPublisher{},
		deadLetters: &recordingDeadLetters{},
		ledger:      l,
		pauser:      &countingPauser{},
		codec:       c,
	}

	gateway := NewGateway(env.publisher, c, env.deadLetters, testChain.Retry, DefaultPublishTimeout, &logger)
	gate := NewRecoveryGate(recoveryOffset, &logger)
	gate.Bind(env.pauser)
	env.router = NewRouter(testChain, env.processor, l, gateway, gate, env.deadLetters, &logger)
	return env
}

func testOrder(reference string) *models.ItemOrdered {
	return &models.ItemOrdered{
		Reference:        reference,
		OrderedAt:        "2024-03-01T10:15:30",
		OrderedBy:        models.OrderedBy{Email: "demo@example.com", ID: "user-1"},
		PaymentReference: "PAY-" + reference,
		TotalOrderCost:   "3",
		Item: models.Item{
			ID:                "MID-123456-123456",
			CompanyName:       "DEMO LIMITED",
			CompanyNumber:     "00006400",
			DescriptionValues: map[string]string{"company_number": "00006400"},
			ItemCosts:         []models.ItemCosts{{ItemCost: "3", CalculatedCost: "3", ProductType: "missing-image-delivery"}},
			ItemOptions:       map[string]string{"filingHistoryType": "AA"},
			Quantity:          1,
			TotalItemCost:     "3",
		},
	}
}

func delivery(topic string, offset int64, order *models.ItemOrdered) *models.Delivery {
	return &models.Delivery{Topic: topic, Partition: 0, Offset: offset, Order: order}
}

func retryable() error {
	return models.NewRetryableError("status 500", nil)
}
