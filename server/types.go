package server

import "github.com/Daskott/safecircle/server/auth"

type ResponsePayload struct {
	Errors  []string    `json:"errors"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

type DecodedJWT struct {
	Claims   *auth.SafeCircleTokenClaims
	ErrorMsg string
}

type RequestContextKey string

type registerRequest struct {
	Name       string `json:"name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	NationalID string `json:"nationalId" validate:"required"`
	Phone      string `json:"phone" validate:"required,phone_number"`
	Email      string `json:"email" validate:"required,email"`
	Dob        string `json:"dob" validate:"required"`
	Gender     string `json:"gender" validate:"required"`
	Password   string `json:"password" validate:"required,password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type historyEntryRequest struct {
	Type        string `json:"type" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
	Procedure   string `json:"procedure"`
}

type reportOptionRequest struct {
	Name      string   `json:"name" validate:"required"`
	Contacts  []string `json:"contacts" validate:"dive,required"`
	Procedure string   `json:"procedure"`
}

// Contacts is required but may be empty, in which case nothing is sent
type sendMessagesRequest struct {
	Name         string   `json:"name" validate:"required"`
	Procedure    string   `json:"procedure" validate:"required"`
	LocationLink string   `json:"locationLink" validate:"required"`
	Contacts     []string `json:"contacts" validate:"required"`
}

type sendOptionMessagesRequest struct {
	Procedure    string `json:"procedure"`
	LocationLink string `json:"locationLink" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type broadcastResponse struct {
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
}
