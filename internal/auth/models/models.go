// Package models defines the identity-flow data carried between the service
// and transport layers.
package models

import (
	"petmily/internal/token"
)

// Outcome is the decision reached after a social identity is authenticated.
type Outcome string

const (
	// OutcomeLogin means the identity resolved to a linked member and
	// tokens were issued.
	OutcomeLogin Outcome = "LOGIN"
	// OutcomeLink means a member owns the claimed phone number but this
	// provider identity is not yet attached; linking confirmation required.
	OutcomeLink Outcome = "LINK"
	// OutcomeSignup means the identity is unknown; registration required.
	OutcomeSignup Outcome = "SIGNUP"
)

// LoginResult is the outcome of a login or linking step. Tokens is set only
// for OutcomeLogin; SignupID carries the staging correlation id only for
// OutcomeSignup.
type LoginResult struct {
	Outcome  Outcome
	Tokens   *token.Pair
	SignupID string
}

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	MemberID int64
	Subject  string
	Role     string
}

// SignupRequest registers a member with local credentials.
type SignupRequest struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber string
}

// SocialSignupRequest completes registration for a staged social identity.
type SocialSignupRequest struct {
	Email       string
	Name        string
	PhoneNumber string
}

// PhoneVerificationIssue is returned when a verification code is staged.
// The code is delivered by the caller's own SMS channel; MailboxAddress
// tells the client where the carrier relay will land.
type PhoneVerificationIssue struct {
	Code           string
	MailboxAddress string
}

// WithdrawRequest closes an account.
type WithdrawRequest struct {
	Password string
	Reason   string
}
