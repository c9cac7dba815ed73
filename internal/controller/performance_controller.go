package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yinkev/Americano-sub009/internal/config"
	"github.com/yinkev/Americano-sub009/internal/service"
	"github.com/yinkev/Americano-sub009/internal/util"
)

type PerformanceController struct {
	PerformanceService *service.PerformanceService
	Cfg                *config.Config
}

func NewPerformanceController(performanceService *service.PerformanceService, cfg *config.Config) *PerformanceController {
	return &PerformanceController{
		PerformanceService: performanceService,
		Cfg:                cfg,
	}
}

func (c *PerformanceController) GetWeakAreas(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	threshold := c.Cfg.Mission.WeakThreshold
	if raw := ctx.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			util.BadRequest(ctx, "threshold must be in [0,1]")
			return
		}
		threshold = parsed
	}

	summaries, err := c.PerformanceService.IdentifyWeakAreas(claims.UserID, threshold)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summaries)
}

func (c *PerformanceController) Recalculate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.PerformanceService.UpdateAllPerformanceMetrics(claims.UserID); err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "performance metrics recomputed"})
}

func (c *PerformanceController) GetDailyMetrics(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	date := time.Now()
	if raw := ctx.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			util.BadRequest(ctx, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	metrics, err := c.PerformanceService.DailyMetrics(claims.UserID, date)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, metrics)
}

func (c *PerformanceController) RecordReview(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, err := c.PerformanceService.RecordReview(claims.UserID, req)
	if err != nil {
		if errors.Is(err, util.ErrObjectiveNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, review)
}

func (c *PerformanceController) ListObjectiveReviews(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	objectiveID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	reviews, err := c.PerformanceService.ObjectiveReviews(claims.UserID, objectiveID)
	if err != nil {
		if errors.Is(err, util.ErrObjectiveNotFound) {
			util.NotFound(ctx, err.Error())
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, reviews)
}
