package handler

import (
	"github.com/labstack/echo/v4"
)

// successResponse is the envelope of every 2xx response.
type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respond(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, successResponse{Success: true, Message: message, Data: data})
}

func respondList(c echo.Context, code int, count int, data any) error {
	return c.JSON(code, successResponse{Success: true, Count: &count, Data: data})
}
