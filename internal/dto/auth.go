package dto

type RegisterRequestDTO struct {
	Login         string `json:"login" validate:"required,min=3,max=50"`
	Password      string `json:"password" validate:"required,min=8"`
	Role          string `json:"role" example:"talent"`
	Jurisdiction  string `json:"jurisdiction,omitempty" example:"CA-ON"`
	TaxRegistered bool   `json:"tax_registered,omitempty"`
}

type RegisterResponseDTO struct {
	Message string `json:"message"`
}

type LoginRequestDTO struct {
	Login    string `json:"login" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponseDTO struct {
	Message string `json:"message"`
}
