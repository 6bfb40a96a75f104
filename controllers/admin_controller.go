package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/middleware"
	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

// AdminController lets front-desk staff manage prizes and redemptions.
type AdminController struct {
	svc *services.RewardsService
}

// NewAdminController creates a new controller instance.
func NewAdminController(svc *services.RewardsService) *AdminController {
	return &AdminController{svc: svc}
}

type prizeRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	Description string `json:"description" binding:"max=1000"`
	Points      int    `json:"points" binding:"required,gt=0"`
	Available   *bool  `json:"available"`
}

func (r prizeRequest) input() services.PrizeInput {
	return services.PrizeInput{
		Name:        r.Name,
		Description: r.Description,
		Points:      r.Points,
		Available:   r.Available,
	}
}

// ListPrizes returns every prize, including unavailable ones.
func (a *AdminController) ListPrizes(ctx *gin.Context) {
	prizes, err := a.svc.AllPrizes(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, prizes)
}

// CreatePrize adds a prize to the catalogue.
func (a *AdminController) CreatePrize(ctx *gin.Context) {
	var req prizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	p, err := a.svc.CreatePrize(ctx.Request.Context(), req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Sugar.Infof("admin %s created prize %d", ctx.GetString(middleware.ContextAdminKey), p.ID)
	utils.Created(ctx, p)
}

// UpdatePrize edits a prize.
func (a *AdminController) UpdatePrize(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req prizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	p, err := a.svc.UpdatePrize(ctx.Request.Context(), id, req.input())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, p)
}

// UpdateRedemption completes or cancels a pending redemption.
func (a *AdminController) UpdateRedemption(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Status models.RedemptionStatus `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	r, err := a.svc.UpdateRedemptionStatus(ctx.Request.Context(), id, req.Status)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, r)
}
