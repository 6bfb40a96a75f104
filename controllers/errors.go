package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gympoints/services"
	"github.com/cppla/gympoints/utils"
)

type errorMapping struct {
	status int
	code   int
}

var errorTable = map[error]errorMapping{
	services.ErrInvalidInput:       {http.StatusBadRequest, 40002},
	services.ErrAlreadyCheckedIn:   {http.StatusBadRequest, 40030},
	services.ErrInsufficientPoints: {http.StatusBadRequest, 40031},
	services.ErrNotLoggedIn:        {http.StatusUnauthorized, 40110},
	services.ErrMemberNotFound:     {http.StatusNotFound, 40410},
	services.ErrReferrerNotFound:   {http.StatusNotFound, 40411},
	services.ErrPrizeNotFound:      {http.StatusNotFound, 40420},
	services.ErrRedemptionNotFound: {http.StatusNotFound, 40430},
	services.ErrDuplicateEmail:     {http.StatusConflict, 40901},
	services.ErrPrizeUnavailable:   {http.StatusConflict, 40920},
	services.ErrInvalidTransition:  {http.StatusConflict, 40930},
	services.ErrConcurrentUpdate:   {http.StatusConflict, 40940},
}

// respondError maps an engine error onto the response envelope. Storage
// failures are logged and reported without their cause.
func respondError(ctx *gin.Context, err error) {
	if m, ok := errorTable[services.ErrorKind(err)]; ok {
		utils.Error(ctx, m.status, m.code, err.Error())
		return
	}
	utils.Logger.Error("request failed",
		zap.String("method", ctx.Request.Method),
		zap.String("path", ctx.FullPath()),
		zap.Error(err),
	)
	utils.Error(ctx, http.StatusInternalServerError, 50000, "internal error")
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
