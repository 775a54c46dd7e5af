// Package api holds the response envelopes shared by every handler and
// referenced from the swagger annotations.
package api

type ErrorResponse struct {
	Error string `json:"error" example:"Insufficient wallet balance"`
}

type MessageResponse struct {
	Message string `json:"message" example:"booking updated"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}
