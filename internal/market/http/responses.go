package http

import (
	"github.com/cpf-camaras/market/internal/market/domain"
	"github.com/cpf-camaras/market/pkg/marketsdk"
)

func userResponse(u domain.User) marketsdk.UserResponse {
	return marketsdk.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Company:   u.Company,
		Phone:     u.Phone,
		ChamberID: u.ChamberID,
		Role:      string(u.Role),
		Active:    u.Active,
		Suspended: u.Suspended,
		Approved:  u.Approved,
		CreatedAt: u.CreatedAt,
	}
}

func chamberResponse(c domain.Chamber) marketsdk.ChamberResponse {
	return marketsdk.ChamberResponse{
		ID:       c.ID,
		Name:     c.Name,
		City:     c.City,
		Province: c.Province,
	}
}

func attemptResponse(a domain.ResetAttempt) marketsdk.ResetAttemptResponse {
	return marketsdk.ResetAttemptResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Outcome:   string(a.Outcome),
		Score:     a.Score,
		CreatedAt: a.CreatedAt,
	}
}
