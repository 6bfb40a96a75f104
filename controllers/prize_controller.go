package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

// PrizeController serves the prize catalogue and member redemptions.
type PrizeController struct {
	svc     *services.RewardsService
	members *MemberController
}

// NewPrizeController creates a new controller instance.
func NewPrizeController(svc *services.RewardsService, members *MemberController) *PrizeController {
	return &PrizeController{svc: svc, members: members}
}

// List returns the available prizes, cheapest first.
func (p *PrizeController) List(ctx *gin.Context) {
	prizes, err := p.svc.Prizes(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, prizes)
}

// Redeem exchanges the current member's points for a prize.
func (p *PrizeController) Redeem(ctx *gin.Context) {
	prizeID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	member, ok := p.members.current(ctx)
	if !ok {
		return
	}
	res, err := p.svc.Redeem(ctx.Request.Context(), member.ID, prizeID, time.Time{})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, res)
}

// Redemptions lists the current member's redemptions, newest first.
func (p *PrizeController) Redemptions(ctx *gin.Context) {
	member, ok := p.members.current(ctx)
	if !ok {
		return
	}
	items, err := p.svc.RedemptionHistory(ctx.Request.Context(), member.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}
