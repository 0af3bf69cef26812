package domain

import "time"

// AccountKind identifies which of the structurally-identical account variants
// a record belongs to. Each kind lives in its own DynamoDB table, so phone
// numbers and usernames are unique per kind.
type AccountKind string

const (
	KindAdmin  AccountKind = "admin"
	KindClient AccountKind = "client"
	KindMarket AccountKind = "market"
)

const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleClient     = "client"
	RoleMarket     = "market"
)

// DeviceBoundMarker reports whether a verified-phone marker for this kind is
// bound to an opaque per-device token. Clients may verify from several
// devices concurrently; markets keep a single marker per phone.
func (k AccountKind) DeviceBoundMarker() bool {
	return k == KindClient
}

// DefaultRole is the role assigned to self-registered accounts of this kind.
func (k AccountKind) DefaultRole() string {
	switch k {
	case KindMarket:
		return RoleMarket
	case KindAdmin:
		return RoleAdmin
	default:
		return RoleClient
	}
}

type Account struct {
	AccountID    string     `json:"id" dynamodbav:"account_id"`
	FullName     string     `json:"full_name,omitempty" dynamodbav:"full_name"`
	Username     *string    `json:"username,omitempty" dynamodbav:"username"`
	PhoneNumber  string     `json:"phone_number" dynamodbav:"phone_number"`
	Email        *string    `json:"email,omitempty" dynamodbav:"email"`
	PasswordHash string     `json:"-" dynamodbav:"password_hash"`
	Role         string     `json:"role" dynamodbav:"role"`
	Language     string     `json:"language,omitempty" dynamodbav:"language"`
	PhotoPath    *string    `json:"photo_path,omitempty" dynamodbav:"photo_path"`
	IsActive     bool       `json:"is_active" dynamodbav:"is_active"`
	CreatedAt    time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" dynamodbav:"updated_at"`
	DeletedAt    *time.Time `json:"-" dynamodbav:"deleted_at"`
}

// TokenPayload is the claim set embedded in both access and refresh tokens.
type TokenPayload struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type RequestOtpRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,uzphone"`
}

type VerifyOtpRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,uzphone"`
	// Generated codes are always 6 digits; the bound is deliberately loose.
	Code string `json:"code" validate:"required,min=4,max=8"`
}

type CompleteRegistrationRequest struct {
	PhoneNumber string  `json:"phone_number" validate:"required,uzphone"`
	VerifyToken string  `json:"verify_token"`
	FullName    string  `json:"full_name"`
	Username    *string `json:"username"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	Language    string  `json:"language" validate:"omitempty,oneof=uz ru en"`
}

// LoginRequest carries credentials for any variant. Admins sign in with a
// username, markets with a phone number, clients with either.
type LoginRequest struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password" validate:"required,min=6"`
}

// CreateAccountRequest is the administrative create path (no OTP).
type CreateAccountRequest struct {
	FullName    string  `json:"full_name"`
	Username    *string `json:"username"`
	PhoneNumber string  `json:"phone_number" validate:"required,uzphone"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	Language    string  `json:"language" validate:"omitempty,oneof=uz ru en"`
	PhotoPath   *string `json:"photo_path"`
}

type UpdateAccountRequest struct {
	FullName    *string `json:"full_name"`
	Username    *string `json:"username"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,uzphone"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Password    *string `json:"password" validate:"omitempty,min=6,max=72"`
	Language    *string `json:"language" validate:"omitempty,oneof=uz ru en"`
	PhotoPath   *string `json:"photo_path"`
	IsActive    *bool   `json:"is_active"`
}
