package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

// CheckInController handles daily check-in endpoints.
type CheckInController struct {
	svc     *services.RewardsService
	members *MemberController
}

// NewCheckInController creates a new controller instance.
func NewCheckInController(svc *services.RewardsService, members *MemberController) *CheckInController {
	return &CheckInController{svc: svc, members: members}
}

// DailyCheckIn records today's visit for the current member.
func (c *CheckInController) DailyCheckIn(ctx *gin.Context) {
	member, ok := c.members.current(ctx)
	if !ok {
		return
	}
	res, err := c.svc.CheckIn(ctx.Request.Context(), member.ID, time.Time{})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// History lists the current member's recent check-ins.
func (c *CheckInController) History(ctx *gin.Context) {
	member, ok := c.members.current(ctx)
	if !ok {
		return
	}
	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.Error(ctx, http.StatusBadRequest, 40003, "invalid limit")
			return
		}
		limit = n
	}
	items, err := c.svc.CheckInHistory(ctx.Request.Context(), member.ID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"streak":    member.Streak,
		"tier":      services.Classify(member.Streak),
		"check_ins": items,
	})
}
