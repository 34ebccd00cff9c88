package domain

import "time"

// Contract statuses.
const (
	ContractDraft             = "DRAFT"
	ContractPendingSignatures = "PENDING_SIGNATURES"
	ContractActive            = "ACTIVE"
	ContractCompleted         = "COMPLETED"
	ContractCancelled         = "CANCELLED"
	ContractDisputed          = "DISPUTED"
)

// Milestone statuses.
const (
	MilestonePending    = "PENDING"
	MilestoneInProgress = "IN_PROGRESS"
	MilestoneSubmitted  = "SUBMITTED"
	MilestoneApproved   = "APPROVED"
	MilestoneRejected   = "REJECTED"
)

// Payment statuses. COMPLETED marks money that has left escrow to the
// talent; confirmed escrow funding stays in PROCESSING.
const (
	PaymentPending    = "PENDING"
	PaymentProcessing = "PROCESSING"
	PaymentCompleted  = "COMPLETED"
	PaymentFailed     = "FAILED"
	PaymentRefunded   = "REFUNDED"
)

// Withdrawal statuses.
const (
	WithdrawalPending   = "PENDING"
	WithdrawalCompleted = "COMPLETED"
	WithdrawalFailed    = "FAILED"
)

// Application status consumed by contract creation.
const ApplicationAccepted = "ACCEPTED"

// User roles.
const (
	RoleBusiness = "business"
	RoleTalent   = "talent"
)

type User struct {
	ID            int       `db:"id"`
	Login         string    `db:"login"`
	PasswordHash  string    `db:"password_hash"`
	Role          string    `db:"role"`
	Jurisdiction  string    `db:"jurisdiction"`
	TaxRegistered bool      `db:"tax_registered"`
	CreatedAt     time.Time `db:"created_at"`
}

type Application struct {
	ID         int       `db:"id"`
	ProjectID  int       `db:"project_id"`
	BusinessID int       `db:"business_id"`
	TalentID   int       `db:"talent_id"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}

// Contract amounts are integer minor units (cents).
type Contract struct {
	ID               int        `db:"id"`
	BusinessID       int        `db:"business_id"`
	TalentID         int        `db:"talent_id"`
	ProjectID        int        `db:"project_id"`
	ApplicationID    int        `db:"application_id"`
	TotalAmount      int64      `db:"total_amount"`
	Currency         string     `db:"currency"`
	Status           string     `db:"status"`
	BusinessSignedAt *time.Time `db:"business_signed_at"`
	TalentSignedAt   *time.Time `db:"talent_signed_at"`
	ActivatedAt      *time.Time `db:"activated_at"`
	StartDate        *time.Time `db:"start_date"`
	EndDate          *time.Time `db:"end_date"`
	CreatedAt        time.Time  `db:"created_at"`
}

type Milestone struct {
	ID          int        `db:"id"`
	ContractID  int        `db:"contract_id"`
	Title       string     `db:"title"`
	Amount      int64      `db:"amount"`
	Position    int        `db:"position"`
	Status      string     `db:"status"`
	SubmittedAt *time.Time `db:"submitted_at"`
	ApprovedAt  *time.Time `db:"approved_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Payment is one ledger entry: escrow funding for a contract or a single
// milestone. ExternalTransferRef is set at most once, on release.
type Payment struct {
	ID                  int        `db:"id"`
	ContractID          int        `db:"contract_id"`
	MilestoneID         *int       `db:"milestone_id"`
	PayerID             int        `db:"payer_id"`
	PayeeID             int        `db:"payee_id"`
	Amount              int64      `db:"amount"`
	PlatformFee         int64      `db:"platform_fee"`
	NetAmount           int64      `db:"net_amount"`
	Currency            string     `db:"currency"`
	Status              string     `db:"status"`
	ExternalPaymentRef  string     `db:"external_payment_ref"`
	ExternalTransferRef *string    `db:"external_transfer_ref"`
	ProcessedAt         *time.Time `db:"processed_at"`
	CreatedAt           time.Time  `db:"created_at"`
}

type Withdrawal struct {
	ID                int        `db:"id"`
	UserID            int        `db:"user_id"`
	Amount            int64      `db:"amount"`
	Currency          string     `db:"currency"`
	Status            string     `db:"status"`
	ExternalPayoutRef string     `db:"external_payout_ref"`
	ProcessedAt       *time.Time `db:"processed_at"`
	CreatedAt         time.Time  `db:"created_at"`
}

// ConnectedAccount mirrors the talent's custodial account at the payment
// processor. Releases and payouts are gated on PayoutsEnabled.
type ConnectedAccount struct {
	ID                int       `db:"id"`
	UserID            int       `db:"user_id"`
	ExternalAccountID string    `db:"external_account_id"`
	PayoutsEnabled    bool      `db:"payouts_enabled"`
	DetailsSubmitted  bool      `db:"details_submitted"`
	Requirements      []string  `db:"requirements"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// WebhookEvent records a processed processor event id for idempotent replay.
type WebhookEvent struct {
	ID         int       `db:"id"`
	EventID    string    `db:"event_id"`
	EventType  string    `db:"event_type"`
	ReceivedAt time.Time `db:"received_at"`
}
