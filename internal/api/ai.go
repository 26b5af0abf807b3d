package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/XW123-ART/smart-test-platform/internal/ai"
	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

// similarBugsCandidateLimit bounds how many stored bugs are scored per
// similarity request.
const similarBugsCandidateLimit = 50

func (h *Handler) GetAIConfig(c *gin.Context) {
	cfg, err := h.service.GetAIConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	// The key itself never leaves the server.
	c.JSON(http.StatusOK, gin.H{
		"provider":    cfg.Provider,
		"ai_enabled":  cfg.AIEnabled,
		"api_key_set": cfg.APIKey != "",
	})
}

type aiConfigRequest struct {
	Provider  string `json:"provider" form:"provider"`
	APIKey    string `json:"api_key" form:"api_key"`
	AIEnabled bool   `json:"ai_enabled" form:"ai_enabled"`
}

func (h *Handler) SaveAIConfig(c *gin.Context) {
	var req aiConfigRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	// A key submitted with AI enabled must actually work before it is
	// stored.
	if req.AIEnabled && req.APIKey != "" {
		svc := ai.New(req.APIKey, req.Provider, h.aiOpts...)
		if !svc.TestConnection(c.Request.Context()) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "API密钥验证失败，请检查密钥是否正确"})
			return
		}
	}

	// This endpoint lives under /api and always answers JSON, even for
	// form-encoded submissions from the settings page.
	cfg, err := h.service.SaveAIConfig(c.Request.Context(), req.Provider, req.APIKey, req.AIEnabled)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusOK, gin.H{"errors": verr.Fields})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "AI配置保存成功",
		"provider":   cfg.Provider,
		"ai_enabled": cfg.AIEnabled,
	})
}

// enabledAIService loads the stored configuration and returns a client
// for it, or replies 400 when the feature is switched off.
func (h *Handler) enabledAIService(c *gin.Context) (*ai.Service, bool) {
	cfg, err := h.service.GetAIConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	if !cfg.AIEnabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrAIDisabled.Error()})
		return nil, false
	}
	return h.aiService(cfg), true
}

type improveBugRequest struct {
	Description string `json:"description" form:"description"`
	BugType     string `json:"bug_type" form:"bug_type"`
}

func (h *Handler) ImproveBug(c *gin.Context) {
	var req improveBugRequest
	if err := c.ShouldBind(&req); err != nil || req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少描述内容"})
		return
	}

	svc, ok := h.enabledAIService(c)
	if !ok {
		return
	}

	result, err := svc.ImproveBugDescription(c.Request.Context(), req.Description, req.BugType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type improveTestCaseRequest struct {
	Description string `json:"description" form:"description"`
	Module      string `json:"module" form:"module"`
}

func (h *Handler) ImproveTestCase(c *gin.Context) {
	var req improveTestCaseRequest
	if err := c.ShouldBind(&req); err != nil || req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少测试用例描述"})
		return
	}

	svc, ok := h.enabledAIService(c)
	if !ok {
		return
	}

	result, err := svc.ImproveTestCase(c.Request.Context(), req.Description, req.Module)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type classifyBugRequest struct {
	Description string `json:"description" form:"description"`
}

func (h *Handler) ClassifyBug(c *gin.Context) {
	var req classifyBugRequest
	if err := c.ShouldBind(&req); err != nil || req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少描述内容"})
		return
	}

	svc, ok := h.enabledAIService(c)
	if !ok {
		return
	}

	result, err := svc.ClassifyBug(c.Request.Context(), req.Description)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) SuggestSimilarBugs(c *gin.Context) {
	var req classifyBugRequest
	if err := c.ShouldBind(&req); err != nil || req.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少描述内容"})
		return
	}

	if _, ok := h.enabledAIService(c); !ok {
		return
	}

	bugs, err := h.service.ListAllBugs(c.Request.Context(), similarBugsCandidateLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	candidates := make([]ai.SimilarBug, 0, len(bugs))
	for _, b := range bugs {
		candidates = append(candidates, ai.SimilarBug{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
		})
	}

	c.JSON(http.StatusOK, gin.H{"similar_bugs": h.ranker.Rank(req.Description, candidates)})
}

func (h *Handler) TestAIConnection(c *gin.Context) {
	cfg, err := h.service.GetAIConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !cfg.AIEnabled || cfg.APIKey == "" {
		c.JSON(http.StatusOK, gin.H{"connected": false, "message": "AI功能未启用或未配置API密钥"})
		return
	}

	connected := h.aiService(cfg).TestConnection(c.Request.Context())
	message := "连接成功"
	if !connected {
		message = "连接失败，请检查API密钥"
	}
	c.JSON(http.StatusOK, gin.H{"connected": connected, "message": message})
}
