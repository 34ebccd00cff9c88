package dto

import "time"

type BalanceResponseDTO struct {
	Available int64 `json:"available" example:"91600"`
}

type WithdrawRequestDTO struct {
	Amount int64 `json:"amount" example:"50000"`
}

type WithdrawalResponseDTO struct {
	ID                int        `json:"id" example:"1"`
	Amount            int64      `json:"amount" example:"50000"`
	Currency          string     `json:"currency" example:"CAD"`
	Status            string     `json:"status" example:"PENDING"`
	ExternalPayoutRef string     `json:"external_payout_ref" example:"po_123"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type ConnectedAccountResponseDTO struct {
	ExternalAccountID string   `json:"external_account_id" example:"acct_123"`
	PayoutsEnabled    bool     `json:"payouts_enabled" example:"true"`
	DetailsSubmitted  bool     `json:"details_submitted" example:"true"`
	Requirements      []string `json:"requirements"`
}
