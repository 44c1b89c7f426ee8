package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/utils"
)

var brushTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ChildController manages the children of the logged-in parent.
type ChildController struct {
	db *gorm.DB
}

// NewChildController creates a ChildController.
func NewChildController(db *gorm.DB) *ChildController {
	return &ChildController{db: db}
}

// List returns the parent's children. No children is an empty list.
func (c *ChildController) List(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	children := make([]models.Child, 0)
	if err := c.db.Where("parent_id = ?", actor.ID).Order("id ASC").Find(&children).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to fetch children")
		return
	}

	items := make([]gin.H, 0, len(children))
	for _, child := range children {
		items = append(items, childResponse(child))
	}
	utils.Success(ctx, items)
}

// Add creates a child account under the parent.
func (c *ChildController) Add(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}

	type request struct {
		Name        string `json:"name" binding:"required"`
		Age         int    `json:"age" binding:"required,min=1,max=18"`
		Gender      string `json:"gender" binding:"required"`
		Password    string `json:"password" binding:"required,len=4"`
		Avatar      string `json:"avatar"`
		Preferences struct {
			MorningBrushTime string `json:"morningBrushTime"`
			NightBrushTime   string `json:"nightBrushTime"`
		} `json:"preferences"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "please provide a name, age, gender and a 4 character password")
		return
	}

	name := utils.SanitizeText(req.Name)
	if name == "" || len([]rune(name)) > 64 {
		utils.Error(ctx, http.StatusBadRequest, 40021, "child name must be 1 to 64 characters long")
		return
	}
	if !models.ValidGender(req.Gender) {
		utils.Error(ctx, http.StatusBadRequest, 40022, "gender must be Male, Female or Prefer not to say")
		return
	}
	prefs := models.BrushPreferences{
		MorningBrushTime: fallback(req.Preferences.MorningBrushTime, models.DefaultMorningBrush),
		NightBrushTime:   fallback(req.Preferences.NightBrushTime, models.DefaultNightBrush),
	}
	if !brushTimePattern.MatchString(prefs.MorningBrushTime) || !brushTimePattern.MatchString(prefs.NightBrushTime) {
		utils.Error(ctx, http.StatusBadRequest, 40023, "brush times must use HH:MM")
		return
	}

	var count int64
	if err := c.db.Model(&models.Child{}).Where("parent_id = ? AND name = ?", actor.ID, name).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to add child")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40920, "you already have a child named '"+name+"'")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to secure password")
		return
	}

	child := models.Child{
		ParentID:     actor.ID,
		Name:         name,
		Age:          req.Age,
		Gender:       req.Gender,
		PasswordHash: hash,
		Avatar:       fallback(strings.TrimSpace(req.Avatar), models.DefaultChildAvatar),
		Preferences:  prefs,
	}
	if err := c.db.Create(&child).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40920, "you already have a child named '"+name+"'")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to add child")
		return
	}

	utils.Sugar.Infow("child added", "parent_id", actor.ID, "child_id", child.ID)
	utils.Created(ctx, childResponse(child))
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
