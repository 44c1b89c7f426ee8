package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brighterbites/backend/middleware"
	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/services"
	"github.com/brighterbites/backend/utils"
)

// respondError maps a service error to a status and application code. Storage
// failures are logged and reported without detail.
func respondError(ctx *gin.Context, err error, fallbackCode int, fallbackMsg string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40310, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40910, err.Error())
	default:
		_ = ctx.Error(err)
		utils.Error(ctx, http.StatusInternalServerError, fallbackCode, fallbackMsg)
	}
}

func getActor(ctx *gin.Context) (models.Actor, bool) {
	actor, ok := middleware.ActorFrom(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return models.Actor{}, false
	}
	return actor, true
}

// parseID reads a positive numeric id. An empty string yields 0 and no error.
func parseID(s string) (uint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil || n == 0 {
		return 0, services.ErrInvalidID
	}
	return uint(n), nil
}
