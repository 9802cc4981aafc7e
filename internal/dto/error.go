package dto

import "github.com/shopspring/decimal"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Resource  string            `json:"resource,omitempty"`
	Requested *int              `json:"requested,omitempty"`
	Available *int              `json:"available,omitempty"`
	Conflict  *ConflictResponse `json:"conflict,omitempty"`
}

// ConflictResponse describes the record that blocked an operation.
type ConflictResponse struct {
	RecordID    string           `json:"recordID"`
	State       string           `json:"state"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Outstanding *decimal.Decimal `json:"outstanding,omitempty"`
}
