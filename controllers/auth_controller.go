package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/brighterbites/backend/middleware"
	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/utils"
)

// AuthController handles parent registration, logins and logout.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

func parentResponse(p models.Parent) gin.H {
	return gin.H{
		"id":         p.ID,
		"parentname": p.Name,
		"email":      p.Email,
		"type":       models.ActorParent,
		"createdAt":  p.CreatedAt,
	}
}

func childResponse(c models.Child) gin.H {
	return gin.H{
		"id":          c.ID,
		"name":        c.Name,
		"age":         c.Age,
		"gender":      c.Gender,
		"avatar":      c.Avatar,
		"preferences": c.Preferences,
		"score":       c.Score,
		"parentId":    c.ParentID,
		"type":        models.ActorChild,
	}
}

// RegisterParent creates a parent account with a bcrypt hashed password.
func (a *AuthController) RegisterParent(ctx *gin.Context) {
	type request struct {
		Parentname string `json:"parentname" binding:"required"`
		Email      string `json:"email" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "all fields are required")
		return
	}

	req.Parentname = strings.TrimSpace(req.Parentname)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if len(req.Password) < 6 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "password must be at least 6 characters long")
		return
	}
	if len([]rune(req.Parentname)) < 3 || len([]rune(req.Parentname)) > 64 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "parent name must be 3 to 64 characters long")
		return
	}
	if !validEmail(req.Email) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email format")
		return
	}

	var count int64
	if err := a.db.Model(&models.Parent{}).Where("name = ?", req.Parentname).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to register")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40901, "parent username already exists")
		return
	}
	if err := a.db.Model(&models.Parent{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to register")
		return
	}
	if count > 0 {
		utils.Error(ctx, http.StatusConflict, 40902, "email already exists")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to secure password")
		return
	}

	parent := models.Parent{Name: req.Parentname, Email: req.Email, PasswordHash: hash}
	if err := a.db.Create(&parent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.Error(ctx, http.StatusConflict, 40901, "parent username or email already exists")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to create account")
		return
	}

	token, err := utils.GenerateToken(parent.ID, models.ActorParent, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Sugar.Infow("parent registered", "parent_id", parent.ID)
	utils.Created(ctx, gin.H{"token": token, "parent": parentResponse(parent)})
}

// LoginParent verifies parent credentials and issues a JWT.
func (a *AuthController) LoginParent(ctx *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "email and password are required")
		return
	}

	var parent models.Parent
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := a.db.Where("email = ?", email).First(&parent).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid credentials")
		return
	}
	if !utils.CheckPassword(parent.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(parent.ID, models.ActorParent, 0)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"token": token, "user": parentResponse(parent)})
}

// LoginChild verifies a child's name and short password. Names are only unique
// per parent, so every child with the name is tried.
func (a *AuthController) LoginChild(ctx *gin.Context) {
	type request struct {
		Childname string `json:"childname" binding:"required"`
		Password  string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "please provide a name and password")
		return
	}

	var candidates []models.Child
	if err := a.db.Where("name = ?", strings.TrimSpace(req.Childname)).Order("id ASC").Find(&candidates).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to log in")
		return
	}

	for _, child := range candidates {
		if !utils.CheckPassword(child.PasswordHash, req.Password) {
			continue
		}
		token, err := utils.GenerateToken(child.ID, models.ActorChild, 0)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
			return
		}
		utils.Success(ctx, gin.H{"token": token, "user": childResponse(child)})
		return
	}
	utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid name or password")
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	v, ok := ctx.Get(middleware.ContextClaimsKey)
	claims, _ := v.(*utils.Claims)
	if !ok || claims == nil || token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

func validEmail(s string) bool {
	if strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return false
	}
	domain := s[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
