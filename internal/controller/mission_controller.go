package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yinkev/Americano-sub009/internal/service"
	"github.com/yinkev/Americano-sub009/internal/util"
)

type MissionController struct {
	MissionService *service.MissionService
}

func NewMissionController(missionService *service.MissionService) *MissionController {
	return &MissionController{MissionService: missionService}
}

type generateMissionRequest struct {
	Date          string `json:"date"` // YYYY-MM-DD, defaults to today
	TargetMinutes int    `json:"targetMinutes" binding:"min=0,max=480"`
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (c *MissionController) Generate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req generateMissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		util.BadRequest(ctx, "date must be YYYY-MM-DD")
		return
	}

	mission, err := c.MissionService.GenerateDailyMission(claims.UserID, date, req.TargetMinutes)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) Preview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	date, err := parseDate(ctx.Query("date"))
	if err != nil {
		util.BadRequest(ctx, "date must be YYYY-MM-DD")
		return
	}

	target := 0
	if raw := ctx.Query("targetMinutes"); raw != "" {
		target, err = strconv.Atoi(raw)
		if err != nil || target < 0 {
			util.BadRequest(ctx, "invalid targetMinutes")
			return
		}
	}

	preview, err := c.MissionService.PreviewMission(claims.UserID, date, target)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, preview)
}

func (c *MissionController) GetToday(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	mission, err := c.MissionService.GetTodayMission(claims.UserID)
	if err != nil {
		if errors.Is(err, util.ErrMissionNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	missionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	mission, err := c.MissionService.GetMission(claims.UserID, missionID)
	if err != nil {
		c.writeMissionError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) Regenerate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	missionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	mission, err := c.MissionService.RegenerateMission(claims.UserID, missionID)
	if err != nil {
		c.writeMissionError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	missionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	mission, err := c.MissionService.StartMission(claims.UserID, missionID)
	if err != nil {
		c.writeMissionError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) Skip(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	missionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	mission, err := c.MissionService.SkipMission(claims.UserID, missionID)
	if err != nil {
		c.writeMissionError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) CompleteObjective(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	missionID, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	objectiveID, ok := pathID(ctx, "objectiveId")
	if !ok {
		return
	}

	var req service.CompleteObjectiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	mission, err := c.MissionService.CompleteObjective(claims.UserID, missionID, objectiveID, req)
	if err != nil {
		c.writeMissionError(ctx, err)
		return
	}

	util.Success(ctx, mission)
}

func (c *MissionController) writeMissionError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrMissionNotFound),
		errors.Is(err, util.ErrMissionObjectiveNotFound):
		util.NotFound(ctx, err.Error())
	case errors.Is(err, util.ErrMissionFinished),
		errors.Is(err, util.ErrRegenerateCompleted),
		errors.Is(err, util.ErrRegenerateInProgress):
		util.Conflict(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		util.BadRequest(ctx, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
