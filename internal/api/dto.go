package api

import "time"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Version  string            `json:"version"`
	Uptime   string            `json:"uptime"`
	Checks   map[string]string `json:"checks"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LoginRequest is the body of POST /login
type LoginRequest struct {
	GrantType string `json:"grant_type"`
	UserName  string `json:"username"`
	Password  string `json:"password"`
}

// TokenResponse is returned by a successful login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// LogoutRequest is the body of DELETE /login
type LogoutRequest struct {
	Token string `json:"token"`
	Type  string `json:"type"`
}

// RegisterRequest is the body of POST /register
type RegisterRequest struct {
	UserName    string `json:"userName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

// RegisterResponse is returned by POST /register. The activation code
// stands in for the e-mail a real platform would send.
type RegisterResponse struct {
	UserResponse
	ActivationCode string `json:"activationCode"`
}

// RecoveryRequest is the body of POST /recover-password
type RecoveryRequest struct {
	UserName string `json:"userName,omitempty"`
	Email    string `json:"email,omitempty"`
}

// RecoveryResponse carries the token needed by PUT /recover-password
type RecoveryResponse struct {
	RecoveryToken string `json:"recoveryToken"`
}

// ResetPasswordRequest is the body of PUT /recover-password
type ResetPasswordRequest struct {
	RecoveryToken string `json:"recoveryToken"`
	NewPassword   string `json:"newPassword"`
}

// UserResponse is the public form of a registered user
type UserResponse struct {
	ID          string              `json:"id"`
	UserName    string              `json:"userName"`
	Email       string              `json:"email,omitempty"`
	DisplayName string              `json:"displayName,omitempty"`
	Roles       []string            `json:"roles,omitempty"`
	Permissions map[string][]string `json:"permissions,omitempty"`
	IsApproved  bool                `json:"isApproved"`
	IsLocked    bool                `json:"isLocked"`
	CreatedAt   time.Time           `json:"dateCreated"`
}

// PageResponse is the envelope of every collection listing
type PageResponse struct {
	Items          []map[string]interface{} `json:"item"`
	TotalRecords   int                      `json:"totalRecords"`
	Page           int                      `json:"page"`
	RecordsPerPage int                      `json:"recordsPerPage"`
	SearchQuery    string                   `json:"searchQuery,omitempty"`
}

// StreamContent is the body of a stream upload or download
type StreamContent struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType,omitempty"`
	Content     []byte `json:"content"`
}

// StreamInfo describes a stored stream
type StreamInfo struct {
	Path        string `json:"path"`
	ContentType string `json:"contentType,omitempty"`
	Size        int    `json:"size"`
}

// Error codes
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeTimeout        = "TIMEOUT"
	ErrCodeRateLimited    = "RATE_LIMITED"
)

// NewErrorResponse creates a new error response
func NewErrorResponse(err string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: err,
		Code:  code,
	}
}

// NewErrorResponseWithDetails creates a new error response with details
func NewErrorResponseWithDetails(err string, code string, details string) *ErrorResponse {
	return &ErrorResponse{
		Error:   err,
		Code:    code,
		Details: details,
	}
}
