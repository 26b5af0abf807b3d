package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

type bugRequest struct {
	Title             string `json:"title" form:"title"`
	Description       string `json:"description" form:"description"`
	Severity          string `json:"severity" form:"severity"`
	Priority          string `json:"priority" form:"priority"`
	BugType           string `json:"bug_type" form:"bug_type"`
	Environment       string `json:"environment" form:"environment"`
	ReproductionSteps string `json:"reproduction_steps" form:"reproduction_steps"`
	ExpectedResult    string `json:"expected_result" form:"expected_result"`
	ActualResult      string `json:"actual_result" form:"actual_result"`
}

func (r bugRequest) input() domain.BugInput {
	return domain.BugInput{
		Title:             r.Title,
		Description:       r.Description,
		Severity:          r.Severity,
		Priority:          r.Priority,
		BugType:           r.BugType,
		Environment:       r.Environment,
		ReproductionSteps: r.ReproductionSteps,
		ExpectedResult:    r.ExpectedResult,
		ActualResult:      r.ActualResult,
	}
}

// ListBugs renders the bug dashboard: one page of bugs plus the
// per-status totals for the filter bar.
func (h *Handler) ListBugs(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	filter := domain.BugFilter{
		Keyword:  c.Query("keyword"),
		Status:   c.Query("status"),
		Severity: c.Query("severity"),
		Page:     page,
	}

	bugs, total, err := h.service.ListBugs(c.Request.Context(), filter)
	if err != nil {
		h.handleServiceError(c, err, "/bugs")
		return
	}
	stats, err := h.service.BugStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, "/bugs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bugs":      bugs,
		"total":     total,
		"page":      filter.Page,
		"page_size": domain.PageSize,
		"stats":     stats,
	})
}

func (h *Handler) CreateBug(c *gin.Context) {
	var req bugRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	bug, err := h.service.CreateBug(c.Request.Context(), req.input(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err, "/bugs")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, bug)
		return
	}
	redirectWithFlash(c, fmt.Sprintf("/bugs/%d", bug.ID), "success", fmt.Sprintf("缺陷 #%d 创建成功！", bug.ID))
}

func (h *Handler) GetBug(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bug ID"})
		return
	}
	bug, err := h.service.GetBug(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "/bugs")
		return
	}
	c.JSON(http.StatusOK, bug)
}

func (h *Handler) EditBug(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bug ID"})
		return
	}
	var req bugRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	detail := fmt.Sprintf("/bugs/%d", id)
	bug, err := h.service.UpdateBug(c.Request.Context(), id, req.input(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, bug)
		return
	}
	redirectWithFlash(c, detail, "success", "缺陷更新成功！")
}

func (h *Handler) DeleteBug(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bug ID"})
		return
	}
	if err := h.service.DeleteBug(c.Request.Context(), id, currentUserID(c)); err != nil {
		h.handleServiceError(c, err, fmt.Sprintf("/bugs/%d", id))
		return
	}
	if wantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	redirectWithFlash(c, "/bugs", "success", fmt.Sprintf("缺陷 #%d 已删除", id))
}

type statusRequest struct {
	Status string `json:"status" form:"status"`
}

func (h *Handler) UpdateBugStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bug ID"})
		return
	}
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	detail := fmt.Sprintf("/bugs/%d", id)
	bug, err := h.service.UpdateBugStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, bug)
		return
	}
	redirectWithFlash(c, detail, "success", fmt.Sprintf("状态已更新为 %s", bug.Status))
}

type assignRequest struct {
	AssignedTo *uint `json:"assigned_to" form:"assigned_to"`
}

func (h *Handler) AssignBug(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bug ID"})
		return
	}
	var req assignRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	detail := fmt.Sprintf("/bugs/%d", id)
	bug, err := h.service.AssignBug(c.Request.Context(), id, req.AssignedTo)
	if err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, bug)
		return
	}
	if bug.AssignedToID == nil {
		redirectWithFlash(c, detail, "success", "已取消分配")
		return
	}
	redirectWithFlash(c, detail, "success", "分配成功")
}
