package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/utils"
)

// ParentController serves the logged-in parent's own profile.
type ParentController struct {
	db *gorm.DB
}

// NewParentController creates a ParentController.
func NewParentController(db *gorm.DB) *ParentController {
	return &ParentController{db: db}
}

// Me returns the current parent's profile.
func (p *ParentController) Me(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	var parent models.Parent
	if err := p.db.First(&parent, actor.ID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "parent not found")
		return
	}
	utils.Success(ctx, gin.H{"parent": parentResponse(parent)})
}

// UpdateProfile changes the parent name and email. Omitted fields keep their value.
func (p *ParentController) UpdateProfile(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	var req struct {
		Parentname *string `json:"parentname"`
		Email      *string `json:"email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	var parent models.Parent
	if err := p.db.First(&parent, actor.ID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "parent not found")
		return
	}

	updates := map[string]interface{}{}
	if req.Parentname != nil {
		name := strings.TrimSpace(*req.Parentname)
		if l := len([]rune(name)); l < 3 || l > 64 {
			utils.Error(ctx, http.StatusBadRequest, 40031, "parent name must be 3 to 64 characters long")
			return
		}
		updates["name"] = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !validEmail(email) {
			utils.Error(ctx, http.StatusBadRequest, 40032, "invalid email format")
			return
		}
		updates["email"] = email
	}

	if len(updates) > 0 {
		if err := p.db.Model(&parent).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				utils.Error(ctx, http.StatusConflict, 40903, "parent name or email already in use")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
			return
		}
		if err := p.db.First(&parent, actor.ID).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update profile")
			return
		}
	}

	utils.Success(ctx, gin.H{"message": "profile updated successfully", "parent": parentResponse(parent)})
}
