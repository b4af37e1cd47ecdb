package handler

import "github.com/passagelab/classroom-api/internal/core/ports"

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username"  validate:"required,min=3,max=50"`
	Email    string `json:"email"     validate:"required,email,max=255"`
	Password string `json:"password"  validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required,max=100"`
	Role     string `json:"role"      validate:"omitempty,oneof=ADMIN TEACHER STUDENT"`
}

type refreshTokensRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type sessionsResponse struct {
	Sessions []ports.Session `json:"sessions"`
}

func (r loginRequest) toInput() ports.LoginInput {
	return ports.LoginInput{Username: r.Username, Password: r.Password}
}

func (r registerRequest) toInput() ports.RegisterInput {
	return ports.RegisterInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		Role:     r.Role,
	}
}
