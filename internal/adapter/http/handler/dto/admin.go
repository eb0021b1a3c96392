package dto

import (
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/admin"
)

type CreateUserRequest struct {
	Role   string `json:"role" validate:"required,role"`
	Name   string `json:"name" validate:"required,max=100"`
	Phone  string `json:"phone" validate:"omitempty,e164"`
	City   string `json:"city" validate:"max=100"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
}

func (r *CreateUserRequest) ToInput() admin.CreateUserInput {
	return admin.CreateUserInput{
		Role:   types.UserRole(r.Role),
		Name:   r.Name,
		Phone:  r.Phone,
		City:   r.City,
		Avatar: r.Avatar,
	}
}

type VerificationRequest struct {
	Status string `json:"status" validate:"required,verification"`
}

type IssueTokenRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}
