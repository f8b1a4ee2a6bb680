package codec

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"orderconsumer/internal/models"
	"testing"
)

func sampleOrder() *models.ItemOrdered {
	return &models.ItemOrdered{
		Reference:        "ORD-1",
		OrderedAt:        "2024-03-01T10:15:30",
		OrderedBy:        models.OrderedBy{Email: "demo@example.com", ID: "user-1"},
		PaymentReference: "PAY-1",
		TotalOrderCost:   "3",
		Item: models.Item{
			ID:                    "MID-123456-123456",
			CompanyName:           "DEMO LIMITED",
			CompanyNumber:         "00006400",
			CustomerReference:     "ref",
			Description:           "missing image delivery for company 00006400",
			DescriptionIdentifier: "missing-image-delivery",
			DescriptionValues:     map[string]string{"company_number": "00006400"},
			ItemCosts: []models.ItemCosts{
				{DiscountApplied: "0", ItemCost: "3", CalculatedCost: "3", ProductType: "missing-image-delivery-accounts"},
			},
			ItemOptions:   map[string]string{"filingHistoryType": "AA"},
			ItemURI:       "/orderable/missing-image-deliveries/MID-123456-123456",
			Kind:          "item#missing-image-delivery",
			Links:         models.Links{Self: "/orderable/missing-image-deliveries/MID-123456-123456"},
			PostageCost:   "0",
			Quantity:      1,
			TotalItemCost: "3",
		},
	}
}

func TestAvroCodec_RoundTrip(t *testing.T) {
	c, err := NewAvroCodec()
	require.NoError(t, err)

	order := sampleOrder()
	data, err := c.Encode(order)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	decoded, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, order, decoded)
}

func TestAvroCodec_RoundTripEmptyCollections(t *testing.T) {
	c, err := NewAvroCodec()
	require.NoError(t, err)

	order := sampleOrder()
	order.Item.DescriptionValues = nil
	order.Item.ItemOptions = nil
	order.Item.ItemCosts = nil

	data, err := c.Encode(order)
	require.NoError(t, err)

	decoded, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, order, decoded)
}

func TestAvroCodec_DecodeMalformed(t *testing.T) {
	c, err := NewAvroCodec()
	require.NoError(t, err)

	good, err := c.Encode(sampleOrder())
	require.NoError(t, err)

	noReference := sampleOrder()
	noReference.Reference = ""
	noReference.PaymentReference = ""
	anonymous, err := c.Encode(noReference)
	require.NoError(t, err)

	payloads := map[string][]byte{
		"nil":            nil,
		"garbage":        {0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		"truncated":      good[:len(good)/2],
		"trailing bytes": append(append([]byte(nil), good...), 0xde, 0xad),
		"no reference":   anonymous,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode(payload)
			require.Error(t, err)
			assert.True(t, models.IsSerialization(err), "expected serialization error, got %v", err)
		})
	}
}

func TestAvroCodec_EncodeNil(t *testing.T) {
	c, err := NewAvroCodec()
	require.NoError(t, err)

	_, err = c.Encode(nil)
	assert.True(t, models.IsSerialization(err))
}
