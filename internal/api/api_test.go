package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XW123-ART/smart-test-platform/internal/ai"
	"github.com/XW123-ART/smart-test-platform/internal/config"
	"github.com/XW123-ART/smart-test-platform/internal/service"
	"github.com/XW123-ART/smart-test-platform/internal/storage"
)

type testApp struct {
	srv    *httptest.Server
	client *http.Client
}

func newTestApp(t *testing.T, aiOpts ...ai.Option) *testApp {
	t.Helper()

	db, err := storage.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	manager := service.NewManager(storage.NewRepository(db))
	handler := NewHandler(manager, config.AIConfig{SimilarityThreshold: 0.3, MaxSimilar: 5}, aiOpts...)
	router := SetupRouter(handler, "test-session-secret")

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{srv: srv, client: client}
}

func (a *testApp) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := a.client.Post(a.srv.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (a *testApp) registerAndLogin(t *testing.T, username string) {
	t.Helper()
	resp := a.postJSON(t, "/auth/register", map[string]any{
		"username":         username,
		"email":            username + "@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = a.postJSON(t, "/auth/login", map[string]any{
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (a *testApp) createBug(t *testing.T, title, description string) map[string]any {
	t.Helper()
	resp := a.postJSON(t, "/bugs/create", map[string]any{
		"title":       title,
		"description": description,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var bug map[string]any
	decodeBody(t, resp, &bug)
	return bug
}

func TestRegisterLoginCreateBugFlow(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "flowuser")

	// Boundary-length title (5 runes) and description (10 runes).
	bug := app.createBug(t, "白屏五个字的", "描述刚好满十个字符数量")

	assert.Equal(t, "new", bug["status"])
	assert.Equal(t, "medium", bug["severity"])
	assert.Equal(t, "p2", bug["priority"])
	assert.NotContains(t, bug, "closed_at")

	resp := app.get(t, fmt.Sprintf("/api/bugs/%v", bug["id"]))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched map[string]any
	decodeBody(t, resp, &fetched)
	assert.Equal(t, bug["id"], fetched["id"])
}

func TestValidationErrorsReturnedAsObject(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "validuser")

	resp := app.postJSON(t, "/bugs/create", map[string]any{
		"title":       "短",
		"description": "太短",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &body)
	assert.Contains(t, body.Errors, "title")
	assert.Contains(t, body.Errors, "description")
}

func TestUnauthenticatedAccess(t *testing.T) {
	app := newTestApp(t)

	resp := app.get(t, "/api/bugs/1")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "请先登录", body["error"])

	resp = app.get(t, "/bugs")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.Contains(t, loc, "/auth/login?next=")
	assert.Contains(t, loc, "%2Fbugs")
}

func TestLoginHonorsNextTarget(t *testing.T) {
	app := newTestApp(t)
	resp := app.postJSON(t, "/auth/register", map[string]any{
		"username":         "next_user",
		"email":            "next_user@example.com",
		"password":         "password123",
		"confirm_password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// The login redirect middleware escapes the original path, so the
	// form carries it back escaped.
	resp = app.postForm(t, "/auth/login", url.Values{
		"email":    {"next_user@example.com"},
		"password": {"password123"},
		"next":     {"%2Ftest-cases"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/test-cases", resp.Header.Get("Location"))
}

func TestLoginRejectsOffsiteNextTarget(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "next_guard")

	for _, next := range []string{"//evil.example.com", "https://evil.example.com/phish", "evil"} {
		resp := app.postForm(t, "/auth/login", url.Values{
			"email":    {"next_guard@example.com"},
			"password": {"password123"},
			"next":     {next},
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/bugs", resp.Header.Get("Location"), "next=%q", next)
		resp.Body.Close()
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "genuser")

	resp := app.postJSON(t, "/auth/login", map[string]any{
		"email":    "genuser@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "邮箱或密码错误", body["error"])
}

func TestBugStatusEndpointOpenToAnyUser(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "creator")
	bug := app.createBug(t, "状态流转缺陷", "用于验证状态流转的描述")

	app.registerAndLogin(t, "bystander")

	resp := app.postJSON(t, fmt.Sprintf("/bugs/%v/update_status", bug["id"]), map[string]any{
		"status": "closed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var closed map[string]any
	decodeBody(t, resp, &closed)
	assert.Equal(t, "closed", closed["status"])
	assert.Contains(t, closed, "closed_at")
}

func TestEditRequiresOwnership(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "owner1")
	bug := app.createBug(t, "权限验证缺陷", "该缺陷仅创建者可以编辑")

	app.registerAndLogin(t, "intruder")

	resp := app.postJSON(t, fmt.Sprintf("/bugs/%v/edit", bug["id"]), map[string]any{
		"title":       "篡改后的标题内容",
		"description": "试图修改他人创建的缺陷",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestLinkUnlinkFlow(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "linker")
	bug := app.createBug(t, "关联流程缺陷", "用于验证关联解除流程")

	resp := app.postJSON(t, "/test-cases/create", map[string]any{
		"title":           "关联流程测试用例",
		"description":     "验证缺陷与用例的关联操作",
		"steps":           "1. 关联\n2. 解除",
		"expected_result": "关联成功",
		"module":          "缺陷管理",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tc map[string]any
	decodeBody(t, resp, &tc)

	resp = app.postJSON(t, fmt.Sprintf("/test-cases/%v/link-bug", tc["id"]), map[string]any{
		"bug_id": bug["id"],
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var linked struct {
		Bugs []map[string]any `json:"bugs"`
	}
	resp = app.get(t, fmt.Sprintf("/api/test-cases/%v/bugs", tc["id"]))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &linked)
	require.Len(t, linked.Bugs, 1)

	// Linking twice conflicts.
	resp = app.postJSON(t, fmt.Sprintf("/test-cases/%v/link-bug", tc["id"]), map[string]any{
		"bug_id": bug["id"],
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = app.postJSON(t, fmt.Sprintf("/test-cases/%v/unlink-bug/%v", tc["id"], bug["id"]), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.get(t, fmt.Sprintf("/api/test-cases/%v/bugs", tc["id"]))
	decodeBody(t, resp, &linked)
	assert.Empty(t, linked.Bugs)
}

func TestListBugsPagination(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "pager")

	for i := 0; i < 12; i++ {
		app.createBug(t, fmt.Sprintf("分页缺陷编号%02d", i), "分页测试使用的描述内容")
	}

	var body struct {
		Bugs     []map[string]any `json:"bugs"`
		Total    int64            `json:"total"`
		Page     int              `json:"page"`
		PageSize int              `json:"page_size"`
		Stats    map[string]int64 `json:"stats"`
	}
	resp := app.get(t, "/bugs?page=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)

	assert.EqualValues(t, 12, body.Total)
	assert.Len(t, body.Bugs, 2)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 10, body.PageSize)
	assert.EqualValues(t, 12, body.Stats["new"])
}

func TestAIDisabledReturns400(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "aiuser")

	resp := app.postJSON(t, "/api/ai/config", map[string]any{
		"provider":   "openai",
		"ai_enabled": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	for _, path := range []string{
		"/api/ai/improve-bug",
		"/api/ai/classify-bug",
		"/api/ai/suggest-similar-bugs",
	} {
		resp := app.postJSON(t, path, map[string]any{"description": "登录页面白屏"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "AI功能未启用", body["error"], path)
	}

	resp = app.postJSON(t, "/api/ai/improve-test-case", map[string]any{"description": "验证登录"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// test-connection reports rather than rejects.
	resp = app.postJSON(t, "/api/ai/test-connection", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var probe map[string]any
	decodeBody(t, resp, &probe)
	assert.Equal(t, false, probe["connected"])
}

func TestAIMissingDescription(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "aiuser2")

	resp := app.postJSON(t, "/api/ai/improve-bug", map[string]any{"bug_type": "functional"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "缺少描述内容", body["error"])
}

func TestSaveAIConfigAnswersJSONToFormSubmission(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "cfg_form")

	resp := app.postForm(t, "/api/ai/config", url.Values{
		"provider": {"openai"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Equal(t, "AI配置保存成功", body["message"])

	// Field validation failures come back as JSON too, never a redirect.
	resp = app.postForm(t, "/api/ai/config", url.Values{
		"provider": {"openai"},
		"api_key":  {"short"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var errBody struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, resp, &errBody)
	assert.Contains(t, errBody.Errors, "api_key")
}

func TestAIEndpointsWithStubProvider(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		reply := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"severity":"high","priority":"p1","category":"ui","suggested_title":"页面错位"}`}},
			},
		}
		_ = json.NewEncoder(w).Encode(reply)
	}))
	defer stub.Close()

	app := newTestApp(t, ai.WithBaseURL(stub.URL))
	app.registerAndLogin(t, "aiuser3")

	resp := app.postJSON(t, "/api/ai/config", map[string]any{
		"provider":   "openai",
		"api_key":    "sk-0123456789abcdef0123",
		"ai_enabled": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = app.postJSON(t, "/api/ai/classify-bug", map[string]any{"description": "按钮样式错位"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var classified map[string]any
	decodeBody(t, resp, &classified)
	assert.Equal(t, "high", classified["severity"])
	assert.Equal(t, "ui", classified["category"])

	resp = app.postJSON(t, "/api/ai/test-connection", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var probe map[string]any
	decodeBody(t, resp, &probe)
	assert.Equal(t, true, probe["connected"])
	assert.Equal(t, "连接成功", probe["message"])

	// The stored config never leaks the key.
	resp = app.get(t, "/api/ai/config")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cfg map[string]any
	decodeBody(t, resp, &cfg)
	assert.Equal(t, true, cfg["api_key_set"])
	assert.NotContains(t, cfg, "api_key")
}

func TestSuggestSimilarBugs(t *testing.T) {
	app := newTestApp(t)
	app.registerAndLogin(t, "simuser")

	app.createBug(t, "登录页面 提交后 白屏", "登录页面 提交表单后 出现白屏 现象")
	app.createBug(t, "导出报表超时失败", "导出超大报表时 请求超时 任务失败")

	var body struct {
		SimilarBugs []struct {
			ID    uint    `json:"id"`
			Score float64 `json:"similarity_score"`
		} `json:"similar_bugs"`
	}
	resp := app.postJSON(t, "/api/ai/suggest-similar-bugs", map[string]any{
		"description": "登录页面 提交表单后 出现白屏",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &body)

	require.NotEmpty(t, body.SimilarBugs)
	assert.Greater(t, body.SimilarBugs[0].Score, 0.3)
}
