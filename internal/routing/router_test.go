package routing

import (
	"context"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"orderconsumer/internal/ledger"
	"orderconsumer/internal/models"
	"testing"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, Success, Classify(nil))
	assert.Equal(t, Retryable, Classify(models.NewRetryableError("status 503", nil)))
	assert.Equal(t, Permanent, Classify(models.NewPermanentError("status 400", nil)))
	assert.Equal(t, Duplicate, Classify(&models.DuplicateError{ID: "x"}))
	assert.Equal(t, Permanent, Classify(errors.New("unexpected")), "unclassified errors are never retried")
}

func TestClassifyStatus(t *testing.T) {
	cases := map[int]Outcome{
		200: Success,
		201: Success,
		409: Duplicate,
		400: Permanent,
		401: Permanent,
		404: Retryable,
		500: Retryable,
		503: Retryable,
	}
	for code, want := range cases {
		assert.Equal(t, want, ClassifyStatus(code), "status %d", code)
	}
}

func TestTier_Next(t *testing.T) {
	assert.Equal(t, TierRetry, TierMain.Next())
	assert.Equal(t, TierError, TierRetry.Next())
	assert.Equal(t, TierRetry, TierError.Next())

	assert.Equal(t, testChain.Error, testChain.Topic(TierRetry.Next()))
	assert.NoError(t, testChain.Validate())
	assert.Error(t, TopicChain{Main: "a", Retry: "a", Error: "b"}.Validate())
}

func TestRouter_MainSuccess(t *testing.T) {
	env := newTestEnv(t, -1)

	err := env.router.OnMainMessage(context.Background(), delivery(testChain.Main, 0, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, 1, env.processor.Calls())
	assert.Empty(t, env.publisher.Published())
	assert.Equal(t, 0, env.ledger.Len())
}

func TestRouter_MainRetryableRepublishesOnce(t *testing.T) {
	env := newTestEnv(t, -1, retryable())

	err := env.router.OnMainMessage(context.Background(), delivery(testChain.Main, 0, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, 1, env.processor.Calls(), "main never retries in place")
	assert.Equal(t, []string{testChain.Retry}, env.publisher.Topics())
	assert.False(t, env.ledger.Has(ledger.Key{Tier: string(TierMain), ID: "ORD-1"}))
}

func TestRouter_RetryExhaustedEscalatesToError(t *testing.T) {
	env := newTestEnv(t, -1, retryable(), retryable(), retryable())

	err := env.router.OnRetryMessage(context.Background(), delivery(testChain.Retry, 0, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, 3, env.processor.Calls())
	assert.Equal(t, []string{testChain.Error}, env.publisher.Topics())
	assert.False(t, env.ledger.Has(ledger.Key{Tier: string(TierRetry), ID: "ORD-1"}))
}

func TestRouter_RetryRecoversInPlace(t *testing.T) {
	env := newTestEnv(t, -1, retryable(), retryable())

	err := env.router.OnRetryMessage(context.Background(), delivery(testChain.Retry, 0, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, 3, env.processor.Calls())
	assert.Empty(t, env.publisher.Published())
	assert.Equal(t, 0, env.ledger.Len())
}

func TestRouter_RetryHonoursExistingCounter(t *testing.T) {
	env := newTestEnv(t, -1, retryable())
	key := ledger.Key{Tier: string(TierRetry), ID: "ORD-1"}
	env.ledger.RecordFailure(key)
	env.ledger.RecordFailure(key)

	err := env.router.OnRetryMessage(context.Background(), delivery(testChain.Retry, 0, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, 1, env.processor.Calls())
	assert.Equal(t, []string{testChain.Error}, env.publisher.Topics())
	assert.False(t, env.ledger.Has(key))
}

func TestRouter_ErrorExhaustedWrapsToRetry(t *testing.T) {
	env := newTestEnv(t, 10, retryable(), retryable(), retryable())

	err := env.router.OnErrorMessage(context.Background(), delivery(testChain.Error, 3, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, []string{testChain.Retry}, env.publisher.Topics())
	assert.Equal(t, 0, env.ledger.Len())
}

func TestRouter_DuplicateNeverRepublishesNorCounts(t *testing.T) {
	for _, tier := range []Tier{TierMain, TierRetry, TierError} {
		env := newTestEnv(t, 10, &models.DuplicateError{ID: "ORD-1"})

		err := env.router.Handler(tier)(context.Background(), delivery(testChain.Topic(tier), 1, testOrder("ORD-1")))

		require.NoError(t, err)
		assert.Equal(t, 1, env.processor.Calls(), "tier %s", tier)
		assert.Empty(t, env.publisher.Published(), "tier %s", tier)
		assert.Equal(t, 0, env.ledger.Len(), "tier %s", tier)
		assert.Empty(t, env.deadLetters.Reasons(), "tier %s", tier)
	}
}

func TestRouter_PermanentIsDroppedWithDeadLetter(t *testing.T) {
	causes := map[string]error{
		"permanent_failure":    models.NewPermanentError("status 400", nil),
		"unclassified_failure": errors.New("unexpected"),
	}
	for reason, cause := range causes {
		env := newTestEnv(t, -1, cause)

		err := env.router.OnRetryMessage(context.Background(), delivery(testChain.Retry, 0, testOrder("ORD-1")))

		require.NoError(t, err)
		assert.Equal(t, 1, env.processor.Calls())
		assert.Empty(t, env.publisher.Published())
		assert.Equal(t, []string{reason}, env.deadLetters.Reasons())
	}
}

func TestRouter_MissingLogicalID(t *testing.T) {
	env := newTestEnv(t, -1)
	order := testOrder("")
	order.PaymentReference = ""

	err := env.router.OnMainMessage(context.Background(), delivery(testChain.Main, 0, order))

	require.NoError(t, err)
	assert.Equal(t, 0, env.processor.Calls())
	assert.Equal(t, []string{"missing_logical_id"}, env.deadLetters.Reasons())
}

func TestRouter_RecoveryGate(t *testing.T) {
	env := newTestEnv(t, 5)

	err := env.router.OnErrorMessage(context.Background(), delivery(testChain.Error, 5, testOrder("ORD-1")))
	require.NoError(t, err)
	assert.Equal(t, 1, env.processor.Calls())
	assert.Equal(t, 0, env.pauser.Pauses())

	err = env.router.OnErrorMessage(context.Background(), delivery(testChain.Error, 6, testOrder("ORD-2")))
	assert.ErrorIs(t, err, ErrBeyondRecoveryOffset)
	assert.Equal(t, 1, env.processor.Calls(), "message beyond the window is not processed")
	assert.Equal(t, 1, env.pauser.Pauses())
}

func TestRouter_DefaultRecoveryOffsetAdmitsNothing(t *testing.T) {
	env := newTestEnv(t, -1)

	err := env.router.OnErrorMessage(context.Background(), delivery(testChain.Error, 0, testOrder("ORD-1")))

	assert.ErrorIs(t, err, ErrBeyondRecoveryOffset)
	assert.Equal(t, 0, env.processor.Calls())
	assert.Equal(t, 1, env.pauser.Pauses())
}

func TestRouter_PublishFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t, -1, retryable(), retryable(), retryable())
	env.publisher.err = errors.New("broker unavailable")

	err := env.router.OnRetryMessage(context.Background(), delivery(testChain.Retry, 0, testOrder("ORD-1")))

	require.NoError(t, err)
	assert.Equal(t, 0, env.ledger.Len())
	assert.Equal(t, []string{"republish_failed"}, env.deadLetters.Reasons())
}

func TestRouter_CancellationPropagates(t *testing.T) {
	env := newTestEnv(t, -1, retryable())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := env.router.OnMainMessage(ctx, delivery(testChain.Main, 0, testOrder("ORD-1")))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, env.publisher.Published())
}

// ORD-1 travels main -> retry -> error and finally succeeds inside the recovery window
func TestRouter_OrderJourney(t *testing.T) {
	env := newTestEnv(t, 5, retryable(), retryable(), retryable(), retryable())
	ctx := context.Background()
	original := testOrder("ORD-1")

	require.NoError(t, env.router.OnMainMessage(ctx, delivery(testChain.Main, 0, original)))
	require.Equal(t, []string{testChain.Retry}, env.publisher.Topics())
	assert.False(t, env.ledger.Has(ledger.Key{Tier: string(TierMain), ID: "ORD-1"}))

	republished := env.publisher.Published()[0]
	assert.Equal(t, testChain.Retry, string(republished.Key))
	assert.NotEmpty(t, republished.Headers["message-id"])
	onRetry, err := env.codec.Decode(republished.Value)
	require.NoError(t, err)
	assert.Equal(t, original, onRetry)

	require.NoError(t, env.router.OnRetryMessage(ctx, delivery(testChain.Retry, 0, onRetry)))
	require.Equal(t, []string{testChain.Retry, testChain.Error}, env.publisher.Topics())
	assert.False(t, env.ledger.Has(ledger.Key{Tier: string(TierRetry), ID: "ORD-1"}))
	assert.Equal(t, 4, env.processor.Calls())

	onError, err := env.codec.Decode(env.publisher.Published()[1].Value)
	require.NoError(t, err)
	assert.Equal(t, original, onError)

	require.NoError(t, env.router.OnErrorMessage(ctx, delivery(testChain.Error, 2, onError)))
	assert.Equal(t, 5, env.processor.Calls())
	assert.Len(t, env.publisher.Published(), 2, "no further publishes after success")
	assert.False(t, env.ledger.Has(ledger.Key{Tier: string(TierError), ID: "ORD-1"}))
	assert.Equal(t, 0, env.ledger.Len())
	assert.Equal(t, 0, env.pauser.Pauses())
}
