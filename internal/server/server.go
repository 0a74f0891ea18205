package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/boclar/booking-app-business-demo-sub000/internal/engine"
	"github.com/boclar/booking-app-business-demo-sub000/internal/service"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/db/objects"
	apperr "github.com/boclar/booking-app-business-demo-sub000/pkg/errors"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/logger"
	"github.com/boclar/booking-app-business-demo-sub000/pkg/xerr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	engine    *gin.Engine
	resender  *service.Resender
	scheduler *engine.Scheduler
	http      *http.Server
}

type verifyRequest struct {
	Code string `json:"code" binding:"required"`
}

type appStateRequest struct {
	State string `json:"state" binding:"required"`
}

// NewServer scheduler 可以为 nil，此时任务接口返回空列表
func NewServer(resender *service.Resender, scheduler *engine.Scheduler) *Server {
	s := &Server{resender: resender, scheduler: scheduler}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/cooldowns", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"data": s.resender.Snapshot()})
		})

		cd := api.Group("/cooldowns/:flow/:target")
		cd.GET("", s.status)
		cd.POST("/start", s.start)
		cd.POST("/resend", s.resend)
		cd.POST("/verify", s.verify)
		cd.POST("/app-state", s.appState)

		api.GET("/jobs", func(c *gin.Context) {
			if s.scheduler == nil {
				c.JSON(http.StatusOK, gin.H{"data": []engine.JobStats{}})
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": s.scheduler.Stats.GetAll()})
		})

		api.GET("/jobs/:name/logs", func(c *gin.Context) {
			lister, ok := s.jobLogs()
			if !ok {
				c.JSON(http.StatusOK, gin.H{"data": []objects.JobRunLog{}})
				return
			}
			limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
			logs, err := lister.ListLogs(c.Request.Context(), c.Param("name"), limit)
			if err != nil {
				respondError(c, apperr.Wrap(xerr.STORAGE_ERROR, "list job logs failed", err), nil)
				return
			}
			c.JSON(http.StatusOK, gin.H{"data": logs})
		})

		api.POST("/jobs/:name/run", func(c *gin.Context) {
			if s.scheduler == nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
				return
			}
			if err := s.scheduler.ManualRun(c.Param("name")); err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"message": "Triggered"})
		})
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API not found"})
			return
		}
		c.Status(http.StatusNotFound)
	})

	s.engine = router
	return s
}

// JobLogLister 查询任务执行记录，repo.JobLogRepo 实现了它
type JobLogLister interface {
	ListLogs(ctx context.Context, jobName string, limit int) ([]objects.JobRunLog, error)
}

func (s *Server) jobLogs() (JobLogLister, bool) {
	if s.scheduler == nil {
		return nil, false
	}
	lister, ok := s.scheduler.Recorder().(JobLogLister)
	return lister, ok
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 阻塞直到 Shutdown 或监听失败
func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) status(c *gin.Context) {
	res, err := s.resender.Status(c.Request.Context(), c.Param("flow"), c.Param("target"))
	respond(c, res, err)
}

func (s *Server) start(c *gin.Context) {
	res, err := s.resender.Start(c.Request.Context(), c.Param("flow"), c.Param("target"))
	respond(c, res, err)
}

func (s *Server) resend(c *gin.Context) {
	res, err := s.resender.Resend(c.Request.Context(), c.Param("flow"), c.Param("target"))
	respond(c, res, err)
}

func (s *Server) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(xerr.REQUEST_PARAM_ERROR, "code is required", err), nil)
		return
	}
	if err := s.resender.Verify(c.Request.Context(), c.Param("flow"), c.Param("target"), req.Code); err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Verified"})
}

func (s *Server) appState(c *gin.Context) {
	var req appStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Wrap(xerr.REQUEST_PARAM_ERROR, "state is required", err), nil)
		return
	}
	res, err := s.resender.SetAppState(c.Request.Context(), c.Param("flow"), c.Param("target"), req.State)
	respond(c, res, err)
}

func respond(c *gin.Context, res service.Result, err error) {
	if err != nil {
		var data any
		if res.Flow != "" {
			data = res
		}
		respondError(c, err, data)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

func respondError(c *gin.Context, err error, data any) {
	cm := apperr.FromError(err)
	status := cm.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	body := gin.H{"code": cm.Code, "error": cm.Msg}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
