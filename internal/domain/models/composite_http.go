package models

// Requests for composite HTTP endpoints. Defined in domain for consistency and reuse.

type LatestCompositeRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type CompositeHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=5000"`
}
