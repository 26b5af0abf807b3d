package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

type testCaseRequest struct {
	Title          string `json:"title" form:"title"`
	Description    string `json:"description" form:"description"`
	Steps          string `json:"steps" form:"steps"`
	ExpectedResult string `json:"expected_result" form:"expected_result"`
	Preconditions  string `json:"preconditions" form:"preconditions"`
	Priority       string `json:"priority" form:"priority"`
	TestType       string `json:"test_type" form:"test_type"`
	Module         string `json:"module" form:"module"`
}

func (r testCaseRequest) input() domain.TestCaseInput {
	return domain.TestCaseInput{
		Title:          r.Title,
		Description:    r.Description,
		Steps:          r.Steps,
		ExpectedResult: r.ExpectedResult,
		Preconditions:  r.Preconditions,
		Priority:       r.Priority,
		TestType:       r.TestType,
		Module:         r.Module,
	}
}

func (h *Handler) ListTestCases(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	filter := domain.TestCaseFilter{
		Keyword:  c.Query("keyword"),
		Status:   c.Query("status"),
		TestType: c.Query("test_type"),
		Module:   c.Query("module"),
		Page:     page,
	}

	cases, total, err := h.service.ListTestCases(c.Request.Context(), filter)
	if err != nil {
		h.handleServiceError(c, err, "/test-cases")
		return
	}
	stats, err := h.service.TestCaseStats(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err, "/test-cases")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"test_cases": cases,
		"total":      total,
		"page":       filter.Page,
		"page_size":  domain.PageSize,
		"stats":      stats,
	})
}

func (h *Handler) CreateTestCase(c *gin.Context) {
	var req testCaseRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	tc, err := h.service.CreateTestCase(c.Request.Context(), req.input(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err, "/test-cases")
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, tc)
		return
	}
	redirectWithFlash(c, fmt.Sprintf("/test-cases/%d", tc.ID), "success", fmt.Sprintf("测试用例 #%d 创建成功！", tc.ID))
}

func (h *Handler) GetTestCase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	tc, err := h.service.GetTestCase(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "/test-cases")
		return
	}
	c.JSON(http.StatusOK, tc)
}

func (h *Handler) EditTestCase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	var req testCaseRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	detail := fmt.Sprintf("/test-cases/%d", id)
	tc, err := h.service.UpdateTestCase(c.Request.Context(), id, req.input(), currentUserID(c))
	if err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, tc)
		return
	}
	redirectWithFlash(c, detail, "success", "测试用例更新成功！")
}

func (h *Handler) DeleteTestCase(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	if err := h.service.DeleteTestCase(c.Request.Context(), id, currentUserID(c)); err != nil {
		h.handleServiceError(c, err, fmt.Sprintf("/test-cases/%d", id))
		return
	}
	if wantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	redirectWithFlash(c, "/test-cases", "success", fmt.Sprintf("测试用例 #%d 已删除", id))
}

func (h *Handler) UpdateTestCaseStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	var req statusRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	detail := fmt.Sprintf("/test-cases/%d", id)
	tc, err := h.service.UpdateTestCaseStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, tc)
		return
	}
	redirectWithFlash(c, detail, "success", fmt.Sprintf("状态已更新为 %s", tc.Status))
}

type linkBugRequest struct {
	BugID uint `json:"bug_id" form:"bug_id"`
}

func (h *Handler) LinkBug(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	var req linkBugRequest
	if err := c.ShouldBind(&req); err != nil || req.BugID == 0 {
		if wantsJSON(c) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "请选择缺陷"})
			return
		}
		redirectWithFlash(c, fmt.Sprintf("/test-cases/%d", id), "danger", "请选择缺陷")
		return
	}

	detail := fmt.Sprintf("/test-cases/%d", id)
	if err := h.service.LinkBug(c.Request.Context(), id, req.BugID); err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("已关联到缺陷 #%d", req.BugID)})
		return
	}
	redirectWithFlash(c, detail, "success", fmt.Sprintf("已关联到缺陷 #%d", req.BugID))
}

func (h *Handler) UnlinkBug(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	bugID, ok := paramID(c, "bug_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bug ID"})
		return
	}

	detail := fmt.Sprintf("/test-cases/%d", id)
	if err := h.service.UnlinkBug(c.Request.Context(), id, bugID); err != nil {
		h.handleServiceError(c, err, detail)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "已解除关联"})
		return
	}
	redirectWithFlash(c, detail, "success", "已解除关联")
}

// LinkedBugs is the JSON endpoint backing the link picker on the test
// case detail page.
func (h *Handler) LinkedBugs(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid test case ID"})
		return
	}
	bugs, err := h.service.LinkedBugs(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err, "/test-cases")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bugs": bugs})
}
