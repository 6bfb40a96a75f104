package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/gympoints/middleware"
	"github.com/cppla/gympoints/models"
	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

// MemberController handles sign-up, sign-in and the member profile.
type MemberController struct {
	svc     *services.RewardsService
	baseURL string
}

// NewMemberController creates a new controller instance. baseURL is the
// public address referral links point to.
func NewMemberController(svc *services.RewardsService, baseURL string) *MemberController {
	return &MemberController{svc: svc, baseURL: baseURL}
}

// Register creates a member and signs the browser in as them.
func (m *MemberController) Register(ctx *gin.Context) {
	type request struct {
		Name          string `json:"name" binding:"required,max=120"`
		Email         string `json:"email" binding:"required,max=255"`
		Phone         string `json:"phone" binding:"required,max=32"`
		Address       string `json:"address" binding:"required,max=255"`
		ReferrerEmail string `json:"referrer_email" binding:"max=255"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	// Anti-abuse: cooldown and per-IP daily limit
	ip := ctx.ClientIP()
	if !utils.RegistrationCooldownTry(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again shortly")
		return
	}
	if !utils.RegistrationDailyLimitCheck(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	member, err := m.svc.Register(ctx.Request.Context(), middleware.SessionAnchor(ctx), services.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		ReferrerEmail: req.ReferrerEmail,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.RegistrationDailyIncrement(ctx.Request.Context(), ip)

	utils.Created(ctx, member)
}

// Login signs the browser in by email.
func (m *MemberController) Login(ctx *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}
	member, err := m.svc.Login(ctx.Request.Context(), middleware.SessionAnchor(ctx), req.Email)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, member)
}

// Logout forgets the browser's current member.
func (m *MemberController) Logout(ctx *gin.Context) {
	if err := m.svc.Logout(ctx.Request.Context(), middleware.SessionAnchor(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"logged_out": true})
}

// Me returns the current member with tier, rank and referral link.
func (m *MemberController) Me(ctx *gin.Context) {
	member, ok := m.current(ctx)
	if !ok {
		return
	}
	rank, err := m.svc.MemberRank(ctx.Request.Context(), member.ID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	tier := services.Classify(member.Streak)
	resp := gin.H{
		"member":        member,
		"tier":          tier,
		"rank":          rank,
		"referral_link": services.ReferralLink(m.baseURL, member.Email),
	}
	if next, left, ok := services.NextTier(member.Streak); ok {
		resp["next_tier"] = next
		resp["days_to_next_tier"] = left
	}
	utils.Success(ctx, resp)
}

// Referral echoes the ?ref= parameter so the sign-up form can prefill it.
func (m *MemberController) Referral(ctx *gin.Context) {
	ref := strings.TrimSpace(ctx.Query(services.ReferralParam))
	utils.Success(ctx, gin.H{"referrer_email": ref})
}

// current resolves the signed-in member or writes the error response.
func (m *MemberController) current(ctx *gin.Context) (*models.Member, bool) {
	member, err := m.svc.Current(ctx.Request.Context(), middleware.SessionAnchor(ctx))
	if err != nil {
		respondError(ctx, err)
		return nil, false
	}
	return member, true
}
