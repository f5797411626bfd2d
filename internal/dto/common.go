package dto

// PaginationResponse represents common pagination metadata
type PaginationResponse struct {
	Count int `json:"count"`
	Limit int `json:"limit"`
}
