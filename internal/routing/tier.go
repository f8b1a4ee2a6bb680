package routing

import "fmt"

// A Tier is one topic of the main, retry, error chain
type Tier string

const (
	TierMain  Tier = "main"
	TierRetry Tier = "retry"
	TierError Tier = "error"
)

// Next is the tier a retryable message escalates to, error wraps around to retry
func (t Tier) Next() Tier {
	switch t {
	case TierMain, TierError:
		return TierRetry
	default:
		return TierError
	}
}

// A TopicChain names the topic of every tier
type TopicChain struct {
	Main  string
	Retry string
	Error string
}

// Topic returns the topic of tier t
func (c TopicChain) Topic(t Tier) string {
	switch t {
	case TierMain:
		return c.Main
	case TierRetry:
		return c.Retry
	default:
		return c.Error
	}
}

// Validate checks that all topics are set and distinct
func (c TopicChain) Validate() error {
	if c.Main == "" || c.Retry == "" || c.Error == "" {
		return fmt.Errorf("topic chain is incomplete: %+v", c)
	}
	if c.Main == c.Retry || c.Retry == c.Error || c.Main == c.Error {
		return fmt.Errorf("topic chain topics must be distinct: %+v", c)
	}
	return nil
}
