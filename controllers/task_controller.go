package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/services"
	"github.com/brighterbites/backend/utils"
)

// TaskController exposes the daily record engine.
type TaskController struct {
	records *services.RecordService
}

// NewTaskController creates a TaskController.
func NewTaskController(records *services.RecordService) *TaskController {
	return &TaskController{records: records}
}

type recordHabitRequest struct {
	HabitID uint `json:"habitId"`
	ChildID uint `json:"childId"`
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(ctx *gin.Context, v interface{}) bool {
	if err := ctx.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return false
	}
	return true
}

// Today returns the child's record for today, creating it on first access.
func (t *TaskController) Today(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}
	rec, err := t.records.GetOrCreateToday(ctx.Request.Context(), actor.ID)
	if err != nil {
		respondError(ctx, err, 50050, "failed to load today's tasks")
		return
	}
	utils.Success(ctx, rec)
}

// Complete marks the task named in the path as done for the calling child.
func (t *TaskController) Complete(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}
	var req recordHabitRequest
	if !bindOptionalJSON(ctx, &req) {
		return
	}

	rec, err := t.records.CompleteTask(ctx.Request.Context(), actor.ID, ctx.Param("taskType"), req.HabitID)
	if err != nil {
		respondError(ctx, err, 50051, "failed to complete task")
		return
	}
	utils.Success(ctx, rec)
}

// calendarParams resolves the child and window of a calendar request. A child
// reads its own history; a parent names the child.
func calendarParams(ctx *gin.Context, actor models.Actor) (uint, int, bool) {
	childID, err := parseID(ctx.Query("childId"))
	if err != nil {
		respondError(ctx, err, 50052, "failed to load calendar")
		return 0, 0, false
	}
	if childID == 0 {
		if actor.IsParent() {
			utils.Error(ctx, http.StatusBadRequest, 40051, "child ID is required for this request")
			return 0, 0, false
		}
		childID = actor.ID
	}

	days := 0
	if v := strings.TrimSpace(ctx.Query("days")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(ctx, services.ErrInvalidWindow, 50052, "failed to load calendar")
			return 0, 0, false
		}
		days = n
		if days == 0 {
			respondError(ctx, services.ErrInvalidWindow, 50052, "failed to load calendar")
			return 0, 0, false
		}
	}
	return childID, days, true
}

// Calendar returns the records of a recent window, newest first.
func (t *TaskController) Calendar(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}
	childID, days, ok := calendarParams(ctx, actor)
	if !ok {
		return
	}

	records, err := t.records.GetRecords(ctx.Request.Context(), actor, childID, days)
	if err != nil {
		respondError(ctx, err, 50052, "failed to load calendar")
		return
	}
	utils.Success(ctx, records)
}

// CalendarSummary returns the star rollup over the same window as Calendar.
func (t *TaskController) CalendarSummary(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}
	childID, days, ok := calendarParams(ctx, actor)
	if !ok {
		return
	}

	summary, err := t.records.Summary(ctx.Request.Context(), actor, childID, days)
	if err != nil {
		respondError(ctx, err, 50053, "failed to load calendar summary")
		return
	}
	utils.Success(ctx, summary)
}

// AddHabit appends a catalog habit to the child's record for today.
func (t *TaskController) AddHabit(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}
	var req recordHabitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.HabitID == 0 || req.ChildID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40052, "habitId and childId are required")
		return
	}

	rec, err := t.records.AddHabitToToday(ctx.Request.Context(), actor, req.ChildID, req.HabitID)
	if err != nil {
		respondError(ctx, err, 50054, "failed to add habit to today's record")
		return
	}
	utils.Success(ctx, rec)
}

// Refresh resyncs today's habit list with the child's active habits.
func (t *TaskController) Refresh(ctx *gin.Context) {
	actor, ok := getActor(ctx)
	if !ok {
		return
	}
	var req recordHabitRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.ChildID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40053, "childId is required")
		return
	}

	rec, err := t.records.RefreshTodayHabits(ctx.Request.Context(), actor, req.ChildID)
	if err != nil {
		respondError(ctx, err, 50055, "failed to update today's record")
		return
	}
	utils.Success(ctx, rec)
}
