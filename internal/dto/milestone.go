package dto

import "time"

type CreateMilestoneRequestDTO struct {
	Title    string `json:"title" example:"API integration"`
	Amount   int64  `json:"amount" example:"50000"`
	Position int    `json:"position,omitempty" example:"1"`
}

type UpdateMilestoneRequestDTO struct {
	Title    *string `json:"title,omitempty"`
	Amount   *int64  `json:"amount,omitempty" example:"60000"`
	Position *int    `json:"position,omitempty"`
}

type MilestoneResponseDTO struct {
	ID          int        `json:"id" example:"1"`
	ContractID  int        `json:"contract_id" example:"1"`
	Title       string     `json:"title" example:"API integration"`
	Amount      int64      `json:"amount" example:"50000"`
	Position    int        `json:"position" example:"1"`
	Status      string     `json:"status" example:"SUBMITTED"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}
