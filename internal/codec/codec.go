// Package codec implements the Avro wire format of item ordered events
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"github.com/hamba/avro/v2"
	avroschemas "orderconsumer/internal/codec/avro_schemas"
	"orderconsumer/internal/models"
)

// An AvroCodec encodes and decodes ItemOrdered payloads with one parsed schema
type AvroCodec struct {
	schema avro.Schema
}

// NewAvroCodec parses the embedded ItemOrdered schema
func NewAvroCodec() (*AvroCodec, error) {
	schema, err := avro.Parse(string(avroschemas.ItemOrdered))
	if err != nil {
		return nil, fmt.Errorf("parse item ordered schema: %w", err)
	}
	return &AvroCodec{schema: schema}, nil
}

// Encode serializes an order
func (c *AvroCodec) Encode(order *models.ItemOrdered) ([]byte, error) {
	if order == nil {
		return nil, &models.SerializationError{Op: "encode", Err: errors.New("nil order")}
	}

	data, err := avro.Marshal(c.schema, order)
	if err != nil {
		return nil, &models.SerializationError{Op: "encode", Err: err}
	}
	return data, nil
}

// Decode deserializes an order, malformed input yields a SerializationError.
// The payload must hold exactly one record with a logical id.
func (c *AvroCodec) Decode(data []byte) (*models.ItemOrdered, error) {
	if len(data) == 0 {
		return nil, &models.SerializationError{Op: "decode", Err: errors.New("empty payload")}
	}

	// a one byte buffer keeps src.Len() equal to the unread part of the payload
	src := bytes.NewReader(data)
	reader := avro.NewReader(src, 1)

	var order models.ItemOrdered
	reader.ReadVal(c.schema, &order)
	if reader.Error != nil {
		return nil, &models.SerializationError{Op: "decode", Err: reader.Error}
	}
	if src.Len() > 0 {
		return nil, &models.SerializationError{
			Op:  "decode",
			Err: fmt.Errorf("%d trailing bytes after record", src.Len()),
		}
	}
	if order.LogicalID() == "" {
		return nil, &models.SerializationError{Op: "decode", Err: errors.New("record has no reference")}
	}

	normalize(&order)
	return &order, nil
}

// normalize maps empty collections to nil, the wire format does not tell them apart
func normalize(order *models.ItemOrdered) {
	if len(order.Item.DescriptionValues) == 0 {
		order.Item.DescriptionValues = nil
	}
	if len(order.Item.ItemOptions) == 0 {
		order.Item.ItemOptions = nil
	}
	if len(order.Item.ItemCosts) == 0 {
		order.Item.ItemCosts = nil
	}
}
