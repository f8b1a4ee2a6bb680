package interfaces

import (
	"context"
	"orderconsumer/internal/models"
)

type ItemProcessor interface {
	Process(ctx context.Context, order *models.ItemOrdered) error
}

type OrderAPI interface {
	Create(ctx context.Context, path string, body any) (int, []byte, error)
}
