package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/XW123-ART/smart-test-platform/internal/ai"
	"github.com/XW123-ART/smart-test-platform/internal/config"
	"github.com/XW123-ART/smart-test-platform/internal/domain"
	"github.com/XW123-ART/smart-test-platform/internal/logging"
)

// Handler holds the service the HTTP layer delegates to. The AI options
// let tests point the provider client at a local stub server.
type Handler struct {
	service domain.Service
	ranker  *ai.Ranker
	aiOpts  []ai.Option
	log     *slog.Logger
}

func NewHandler(s domain.Service, aiCfg config.AIConfig, aiOpts ...ai.Option) *Handler {
	ranker := ai.NewRanker()
	if aiCfg.SimilarityThreshold > 0 {
		ranker.Threshold = aiCfg.SimilarityThreshold
	}
	if aiCfg.MaxSimilar > 0 {
		ranker.MaxResults = aiCfg.MaxSimilar
	}
	return &Handler{
		service: s,
		ranker:  ranker,
		aiOpts:  aiOpts,
		log:     logging.New("api"),
	}
}

// aiService builds a provider client from the stored configuration.
func (h *Handler) aiService(cfg *domain.AIConfig) *ai.Service {
	return ai.New(cfg.APIKey, cfg.Provider, h.aiOpts...)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func currentUserID(c *gin.Context) uint {
	session := sessions.Default(c)
	v := session.Get(sessionUserKey)
	if v == nil {
		return 0
	}
	id, ok := v.(uint)
	if !ok {
		return 0
	}
	return id
}

// wantsJSON reports whether the client submitted JSON; form submissions
// get the redirect-and-flash treatment instead.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		return true
	}
	return strings.HasPrefix(c.GetHeader("Accept"), "application/json")
}

func addFlash(c *gin.Context, category, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, category)
	if err := session.Save(); err != nil {
		logging.New("api").Warn("save flash", "error", err)
	}
}

func redirectWithFlash(c *gin.Context, location, category, message string) {
	addFlash(c, category, message)
	c.Redirect(http.StatusFound, location)
}

// handleServiceError maps service errors to responses. Validation errors
// go back as a 200 page with per-field messages, matching the form flow.
func (h *Handler) handleServiceError(c *gin.Context, err error, backTo string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{"errors": verr.Fields})
			return
		}
		for field, msg := range verr.Fields {
			addFlash(c, "danger", fmt.Sprintf("%s: %s", field, msg))
		}
		c.Redirect(http.StatusFound, backTo)
		return
	}

	h.log.Warn("service error", "path", c.FullPath(), "error", err)
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrBugNotFound),
		errors.Is(err, domain.ErrTestCaseNotFound):
		if wantsJSON(c) {
			c.JSON(http.StatusNotFound, gin.H{"error": "资源不存在"})
		} else {
			redirectWithFlash(c, backTo, "danger", "资源不存在")
		}
	case errors.Is(err, domain.ErrNotOwner):
		if wantsJSON(c) {
			c.JSON(http.StatusForbidden, gin.H{"error": "您没有权限执行此操作"})
		} else {
			redirectWithFlash(c, backTo, "danger", "您没有权限执行此操作")
		}
	case errors.Is(err, domain.ErrInvalidStatus):
		if wantsJSON(c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的状态"})
		} else {
			redirectWithFlash(c, backTo, "danger", "无效的状态")
		}
	case errors.Is(err, domain.ErrAlreadyLinked):
		if wantsJSON(c) {
			c.JSON(http.StatusConflict, gin.H{"error": "已经关联过此缺陷"})
		} else {
			redirectWithFlash(c, backTo, "info", "已经关联过此缺陷")
		}
	case errors.Is(err, domain.ErrNotLinked):
		if wantsJSON(c) {
			c.JSON(http.StatusConflict, gin.H{"error": "未找到关联关系"})
		} else {
			redirectWithFlash(c, backTo, "info", "未找到关联关系")
		}
	case errors.Is(err, domain.ErrInvalidCredentials):
		if wantsJSON(c) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "邮箱或密码错误"})
		} else {
			redirectWithFlash(c, backTo, "danger", "邮箱或密码错误")
		}
	default:
		if wantsJSON(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		} else {
			redirectWithFlash(c, backTo, "danger", "操作失败，请稍后再试")
		}
	}
}
