package dto

import "time"

type FundEscrowRequestDTO struct {
	MilestoneID *int  `json:"milestone_id,omitempty" example:"1"`
	Amount      int64 `json:"amount" example:"100000"`
}

type FundEscrowResponseDTO struct {
	Payment      PaymentResponseDTO `json:"payment"`
	ClientSecret string             `json:"client_secret" example:"pi_123_secret_456"`
}

type PaymentResponseDTO struct {
	ID                  int        `json:"id" example:"1"`
	ContractID          int        `json:"contract_id" example:"1"`
	MilestoneID         *int       `json:"milestone_id,omitempty" example:"1"`
	Amount              int64      `json:"amount" example:"100000"`
	PlatformFee         int64      `json:"platform_fee" example:"8400"`
	NetAmount           int64      `json:"net_amount" example:"91600"`
	Currency            string     `json:"currency" example:"CAD"`
	Status              string     `json:"status" example:"PROCESSING"`
	ExternalPaymentRef  string     `json:"external_payment_ref" example:"pi_123"`
	ExternalTransferRef *string    `json:"external_transfer_ref,omitempty" example:"tr_789"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}
