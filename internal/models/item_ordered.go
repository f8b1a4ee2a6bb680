// Package models implements the payloads flowing through the consumer
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// OrderedAtLayout is the layout of ItemOrdered.OrderedAt, a local date-time without zone
const OrderedAtLayout = "2006-01-02T15:04:05.999999999"

// orderedAtShortLayout is the same date-time when the seconds are zero and left out
const orderedAtShortLayout = "2006-01-02T15:04"

// An ItemOrdered is the event published when a single item of an order has been paid for
type ItemOrdered struct {
	Reference        string    `avro:"reference" json:"reference"`
	OrderedAt        string    `avro:"ordered_at" json:"ordered_at"`
	OrderedBy        OrderedBy `avro:"ordered_by" json:"ordered_by"`
	PaymentReference string    `avro:"payment_reference" json:"payment_reference"`
	TotalOrderCost   string    `avro:"total_order_cost" json:"total_order_cost"`
	Item             Item      `avro:"item" json:"item"`
}

// An OrderedBy identifies the user who placed the order
type OrderedBy struct {
	Email string `avro:"email" json:"email"`
	ID    string `avro:"id" json:"id"`
}

// An Item is the ordered item itself
type Item struct {
	ID                    string            `avro:"id" json:"id"`
	CompanyName           string            `avro:"company_name" json:"company_name"`
	CompanyNumber         string            `avro:"company_number" json:"company_number"`
	CustomerReference     string            `avro:"customer_reference" json:"customer_reference"`
	Description           string            `avro:"description" json:"description"`
	DescriptionIdentifier string            `avro:"description_identifier" json:"description_identifier"`
	DescriptionValues     map[string]string `avro:"description_values" json:"description_values"`
	ItemCosts             []ItemCosts       `avro:"item_costs" json:"item_costs"`
	ItemOptions           map[string]string `avro:"item_options" json:"item_options"`
	ItemURI               string            `avro:"item_uri" json:"item_uri"`
	Kind                  string            `avro:"kind" json:"kind"`
	Links                 Links             `avro:"links" json:"links"`
	PostageCost           string            `avro:"postage_cost" json:"postage_cost"`
	Quantity              int               `avro:"quantity" json:"quantity"`
	TotalItemCost         string            `avro:"total_item_cost" json:"total_item_cost"`
}

// An ItemCosts is one cost line of an item
type ItemCosts struct {
	DiscountApplied string `avro:"discount_applied" json:"discount_applied"`
	ItemCost        string `avro:"item_cost" json:"item_cost"`
	CalculatedCost  string `avro:"calculated_cost" json:"calculated_cost"`
	ProductType     string `avro:"product_type" json:"product_type"`
}

// Links holds the item's self link
type Links struct {
	Self string `avro:"self" json:"self"`
}

// Item option keys carrying filing history details
const (
	OptionFilingHistoryCategory    = "filingHistoryCategory"
	OptionFilingHistoryDate        = "filingHistoryDate"
	OptionFilingHistoryDescription = "filingHistoryDescription"
	OptionFilingHistoryType        = "filingHistoryType"
)

// LogicalID returns the stable business identifier used to key retry state
func (o *ItemOrdered) LogicalID() string {
	if ref := strings.TrimSpace(o.Reference); ref != "" {
		return ref
	}
	return strings.TrimSpace(o.PaymentReference)
}

// OrderedAtTime parses OrderedAt, seconds are optional
func (o *ItemOrdered) OrderedAtTime() (time.Time, error) {
	for _, layout := range []string{OrderedAtLayout, orderedAtShortLayout} {
		if t, err := time.Parse(layout, o.OrderedAt); err == nil {
			return t, nil
		}
	}
	return time.Time{}, NewOrderValidationError("ordered_at", fmt.Sprintf("invalid date-time %q", o.OrderedAt))
}

// A ValidationError is a custom error type for data validation
type ValidationError struct {
	Field   string
	Struct  string
	Message string
}

// Error is an interface implementation for errors
func (e ValidationError) Error() string {
	return fmt.Sprintf("Validation error in field %s.%s: %s", e.Struct, e.Field, e.Message)
}

// NewOrderValidationError is a validation error in the ItemOrdered
func NewOrderValidationError(field, message string) ValidationError {
	return ValidationError{field, "item_ordered", message}
}

// NewItemValidationError is a validation error in the Item
func NewItemValidationError(field, message string) ValidationError {
	return ValidationError{field, "item", message}
}

var (
	referencePattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	companyNumberPattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)
)

// Validate checks if the ItemOrdered data is correct
func (o *ItemOrdered) Validate() error {
	if err := o.validateRequired(); err != nil {
		return err
	}
	if err := o.validateLogic(); err != nil {
		return err
	}
	if err := o.Item.Validate(); err != nil {
		return fmt.Errorf("item: %w", err)
	}

	return nil
}

// validateRequired checks if the required fields of an ItemOrdered are set
func (o *ItemOrdered) validateRequired() error {
	if o.LogicalID() == "" {
		return NewOrderValidationError("reference", "reference or payment_reference is required")
	}
	if strings.TrimSpace(o.OrderedAt) == "" {
		return NewOrderValidationError("ordered_at", "is required")
	}

	return nil
}

// validateLogic checks that values for ItemOrdered fields are valid
func (o *ItemOrdered) validateLogic() error {
	if o.Reference != "" && !referencePattern.MatchString(o.Reference) {
		return NewOrderValidationError("reference", "must contain only letters, digits, underscores and dashes")
	}

	orderedAt, err := o.OrderedAtTime()
	if err != nil {
		return err
	}
	if orderedAt.After(time.Now().Add(24 * time.Hour)) {
		return NewOrderValidationError("ordered_at", "cannot be in the future")
	}

	return nil
}

// Validate checks if the Item data is correct
func (i *Item) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return NewItemValidationError("id", "is required")
	}
	if strings.TrimSpace(i.CompanyNumber) == "" {
		return NewItemValidationError("company_number", "is required")
	}
	if !companyNumberPattern.MatchString(i.CompanyNumber) {
		return NewItemValidationError("company_number", fmt.Sprintf("invalid company number: %s", i.CompanyNumber))
	}
	if i.Quantity < 0 {
		return NewItemValidationError("quantity", "cannot be negative")
	}

	return nil
}

// A Delivery is one ItemOrdered as received from a topic
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Order     *ItemOrdered
}

// LogicalID returns the delivered order's logical id
func (d *Delivery) LogicalID() string {
	if d.Order == nil {
		return ""
	}
	return d.Order.LogicalID()
}
