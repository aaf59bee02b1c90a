package handler

import (
	"strings"

	"github.com/tasktracker/task-api/internal/core/domain"
)

type registerRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=255"`
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,password"`
}

func (r *registerRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type authData struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type userData struct {
	User *domain.User `json:"user"`
}
