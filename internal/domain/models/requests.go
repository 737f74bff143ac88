package models

// AlertsRequest is the query contract for GET /api/v1/alerts.
type AlertsRequest struct {
	Symbol string `query:"symbol" validate:"omitempty,min=1,max=12"`
	Limit  int    `query:"limit" default:"50" validate:"gte=1,lte=500"`
}

// StateRequest is the query contract for GET /api/v1/state/:symbol.
type StateRequest struct {
	Symbol string `param:"symbol" validate:"required,min=1,max=12"`
}
