package models

// A MissingImageDeliveryRequest is the body posted downstream for one ordered item
type MissingImageDeliveryRequest struct {
	ID                       string `json:"id"`
	CompanyName              string `json:"company_name"`
	CompanyNumber            string `json:"company_number"`
	OrderedAt                string `json:"ordered_at"`
	PaymentReference         string `json:"payment_reference"`
	FilingHistoryCategory    string `json:"filing_history_category,omitempty"`
	FilingHistoryDate        string `json:"filing_history_date,omitempty"`
	FilingHistoryDescription string `json:"filing_history_description,omitempty"`
	FilingHistoryType        string `json:"filing_history_type,omitempty"`
	ItemCost                 string `json:"item_cost"`
	EntityID                 string `json:"entity_id,omitempty"`
}

// NewMissingImageDeliveryRequest maps an ItemOrdered onto a delivery request
func NewMissingImageDeliveryRequest(o *ItemOrdered) *MissingImageDeliveryRequest {
	opts := o.Item.ItemOptions
	return &MissingImageDeliveryRequest{
		ID:                       o.Item.ID,
		CompanyName:              o.Item.CompanyName,
		CompanyNumber:            o.Item.CompanyNumber,
		OrderedAt:                o.OrderedAt,
		PaymentReference:         o.PaymentReference,
		FilingHistoryCategory:    opts[OptionFilingHistoryCategory],
		FilingHistoryDate:        opts[OptionFilingHistoryDate],
		FilingHistoryDescription: opts[OptionFilingHistoryDescription],
		FilingHistoryType:        opts[OptionFilingHistoryType],
		ItemCost:                 o.Item.TotalItemCost,
	}
}
