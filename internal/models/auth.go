package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates actor roles recognized by the engine. The identity
// layer authenticates; the engine trusts and records.
type UserRole string

const (
	RoleAdmin       UserRole = "ADMIN"
	RoleOrganizer   UserRole = "ORGANIZER"
	RoleOperator    UserRole = "OPERATOR"
	RoleParticipant UserRole = "PARTICIPANT"
)

// Valid reports whether the role is one the engine recognizes.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleOperator, RoleParticipant:
		return true
	}
	return false
}

// CanOperate reports whether the role may run the scanner or override marks.
func (r UserRole) CanOperate() bool {
	return r == RoleAdmin || r == RoleOrganizer || r == RoleOperator
}

// CanOrganize reports whether the role may edit schedules and strategies.
func (r UserRole) CanOrganize() bool {
	return r == RoleAdmin || r == RoleOrganizer
}

// JWTClaims is the access-token payload supplied by the identity layer.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// NewPagination builds pagination metadata for a list response.
func NewPagination(page, pageSize, total int) *Pagination {
	return &Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
