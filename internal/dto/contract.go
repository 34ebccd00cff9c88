package dto

import "time"

// Monetary fields are integer minor units (cents).

type CreateContractRequestDTO struct {
	ApplicationID int        `json:"application_id" example:"17"`
	TotalAmount   int64      `json:"total_amount" example:"100000"`
	Currency      string     `json:"currency,omitempty" example:"CAD"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

type UpdateContractRequestDTO struct {
	TotalAmount *int64     `json:"total_amount,omitempty" example:"120000"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

type ContractResponseDTO struct {
	ID               int        `json:"id" example:"1"`
	BusinessID       int        `json:"business_id" example:"2"`
	TalentID         int        `json:"talent_id" example:"3"`
	ProjectID        int        `json:"project_id" example:"5"`
	ApplicationID    int        `json:"application_id" example:"17"`
	TotalAmount      int64      `json:"total_amount" example:"100000"`
	Currency         string     `json:"currency" example:"CAD"`
	Status           string     `json:"status" example:"ACTIVE"`
	BusinessSignedAt *time.Time `json:"business_signed_at,omitempty"`
	TalentSignedAt   *time.Time `json:"talent_signed_at,omitempty"`
	ActivatedAt      *time.Time `json:"activated_at,omitempty"`
	StartDate        *time.Time `json:"start_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}
