package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

// StatsController provides the leaderboard and gym-wide counters.
type StatsController struct {
	svc *services.RewardsService
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(svc *services.RewardsService) *StatsController {
	return &StatsController{svc: svc}
}

// Leaderboard returns the top members by points.
func (s *StatsController) Leaderboard(ctx *gin.Context) {
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "invalid limit")
			return
		}
		limit = n
	}
	board, err := s.svc.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, board)
}

// GetStats returns member, check-in and redemption counts for today.
func (s *StatsController) GetStats(ctx *gin.Context) {
	stats, err := s.svc.Stats(ctx.Request.Context(), time.Time{})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}
