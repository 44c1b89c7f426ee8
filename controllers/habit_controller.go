package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/services"
	"github.com/brighterbites/backend/utils"
)

const (
	maxHabitName        = 100
	maxHabitDescription = 500
	maxHabitIcon        = 64
)

// HabitController manages the habit catalog.
type HabitController struct {
	db *gorm.DB
}

// NewHabitController creates a HabitController.
func NewHabitController(db *gorm.DB) *HabitController {
	return &HabitController{db: db}
}

func (h *HabitController) loadChild(ctx *gin.Context, id uint) (*models.Child, error) {
	var child models.Child
	if err := h.db.WithContext(ctx.Request.Context()).First(&child, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrChildNotFound
		}
		return nil, err
	}
	return &child, nil
}

func (h *HabitController) loadHabit(ctx *gin.Context) (*models.Habit, error) {
	id, err := parseID(ctx.Param("id"))
	if err != nil || id == 0 {
		return nil, services.ErrInvalidID
	}
	var habit models.Habit
	if err := h.db.WithContext(ctx.Request.Context()).First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, services.ErrHabitNotFound
		}
		return nil, err
	}
	return &habit, nil
}

// Create adds a habit for one of the parent's children. New habits are active.
func (h *HabitController) Create(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		ChildID     uint   `json:"childId" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "name and childId are required")
		return
	}

	habit := models.Habit{
		Name:        utils.SanitizeText(req.Name),
		Description: utils.SanitizeText(req.Description),
		Icon:        fallback(utils.SanitizeText(req.Icon), models.DefaultHabitIcon),
		ParentID:    actor.ID,
		ChildID:     req.ChildID,
		IsActive:    true,
	}
	if msg := validateHabit(habit); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, msg)
		return
	}

	child, err := h.loadChild(ctx, req.ChildID)
	if err != nil {
		respondError(ctx, err, 50040, "failed to create habit")
		return
	}
	if err := services.AuthorizeParent(actor, *child); err != nil {
		respondError(ctx, err, 50040, "failed to create habit")
		return
	}

	if err := h.db.WithContext(ctx.Request.Context()).Create(&habit).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create habit")
		return
	}
	utils.Created(ctx, habit)
}

// List returns every habit of the requested child for a parent, or the
// child's own active habits for a child.
func (h *HabitController) List(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	habits := make([]models.Habit, 0)
	q := h.db.WithContext(ctx.Request.Context()).Order("id ASC")
	if actor.IsParent() {
		childID, err := parseID(ctx.Query("childId"))
		if err != nil || childID == 0 {
			utils.Error(ctx, http.StatusBadRequest, 40042, "a childId query parameter is required for parents")
			return
		}
		child, err := h.loadChild(ctx, childID)
		if err != nil {
			respondError(ctx, err, 50041, "failed to fetch habits")
			return
		}
		if err := services.Authorize(actor, *child); err != nil {
			respondError(ctx, err, 50041, "failed to fetch habits")
			return
		}
		q = q.Where("child_id = ?", childID)
	} else {
		q = q.Where("child_id = ? AND is_active = ?", actor.ID, true)
	}

	if err := q.Find(&habits).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to fetch habits")
		return
	}
	utils.Success(ctx, habits)
}

// Update applies a partial update. Today's record is not touched; the parent
// syncs it through the record update endpoint.
func (h *HabitController) Update(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Icon        *string `json:"icon"`
		IsActive    *bool   `json:"isActive"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid request payload")
		return
	}

	habit, err := h.loadHabit(ctx)
	if err != nil {
		respondError(ctx, err, 50042, "failed to update habit")
		return
	}
	if err := services.AuthorizeParent(actor, *habit); err != nil {
		respondError(ctx, err, 50042, "failed to update habit")
		return
	}

	if req.Name != nil {
		habit.Name = utils.SanitizeText(*req.Name)
	}
	if req.Description != nil {
		habit.Description = utils.SanitizeText(*req.Description)
	}
	if req.Icon != nil {
		habit.Icon = fallback(utils.SanitizeText(*req.Icon), models.DefaultHabitIcon)
	}
	if req.IsActive != nil {
		habit.IsActive = *req.IsActive
	}
	if msg := validateHabit(*habit); msg != "" {
		utils.Error(ctx, http.StatusBadRequest, 40041, msg)
		return
	}

	// Select keeps a false IsActive from being skipped as a zero value.
	if err := h.db.WithContext(ctx.Request.Context()).Model(habit).
		Select("name", "description", "icon", "is_active", "updated_at").
		Updates(habit).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to update habit")
		return
	}
	utils.Success(ctx, habit)
}

// Delete removes a habit from the catalog. Record snapshots keep their copy.
func (h *HabitController) Delete(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	habit, err := h.loadHabit(ctx)
	if err != nil {
		respondError(ctx, err, 50043, "failed to delete habit")
		return
	}
	if err := services.AuthorizeParent(actor, *habit); err != nil {
		respondError(ctx, err, 50043, "failed to delete habit")
		return
	}

	if err := h.db.WithContext(ctx.Request.Context()).Delete(&models.Habit{}, habit.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50043, "failed to delete habit")
		return
	}
	utils.Success(ctx, gin.H{"message": "habit removed successfully"})
}

func validateHabit(h models.Habit) string {
	switch {
	case h.Name == "":
		return "habit name is required"
	case len([]rune(h.Name)) > maxHabitName:
		return "habit name must be at most 100 characters"
	case len([]rune(h.Description)) > maxHabitDescription:
		return "habit description must be at most 500 characters"
	case len([]rune(h.Icon)) > maxHabitIcon:
		return "habit icon must be at most 64 characters"
	}
	return ""
}
