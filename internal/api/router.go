package api

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires every route. Web routes answer form submissions
// with redirects and flash messages; the /api group is JSON only.
func SetupRouter(handler *Handler, sessionSecret string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(RequestLogger())

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true})
	router.Use(sessions.Sessions("session", store))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "智能测试平台", "status": "ok"})
	})

	auth := router.Group("/auth")
	{
		auth.POST("/register", handler.Register)
		auth.POST("/login", handler.Login)
		auth.GET("/logout", handler.Logout)
	}

	web := router.Group("/", RequireSession())
	{
		web.GET("/bugs", handler.ListBugs)
		web.POST("/bugs/create", handler.CreateBug)
		web.GET("/bugs/:id", handler.GetBug)
		web.POST("/bugs/:id/edit", handler.EditBug)
		web.POST("/bugs/:id/delete", handler.DeleteBug)
		web.POST("/bugs/:id/update_status", handler.UpdateBugStatus)
		web.POST("/bugs/:id/assign", handler.AssignBug)

		web.GET("/test-cases", handler.ListTestCases)
		web.POST("/test-cases/create", handler.CreateTestCase)
		web.GET("/test-cases/:id", handler.GetTestCase)
		web.POST("/test-cases/:id/edit", handler.EditTestCase)
		web.POST("/test-cases/:id/delete", handler.DeleteTestCase)
		web.POST("/test-cases/:id/update-status", handler.UpdateTestCaseStatus)
		web.POST("/test-cases/:id/link-bug", handler.LinkBug)
		web.POST("/test-cases/:id/unlink-bug/:bug_id", handler.UnlinkBug)
	}

	api := router.Group("/api", RequireSession())
	{
		api.GET("/bugs/:id", handler.GetBug)
		api.GET("/test-cases/:id/bugs", handler.LinkedBugs)

		aiGroup := api.Group("/ai")
		{
			aiGroup.GET("/config", handler.GetAIConfig)
			aiGroup.POST("/config", handler.SaveAIConfig)
			aiGroup.POST("/improve-bug", handler.ImproveBug)
			aiGroup.POST("/improve-test-case", handler.ImproveTestCase)
			aiGroup.POST("/classify-bug", handler.ClassifyBug)
			aiGroup.POST("/suggest-similar-bugs", handler.SuggestSimilarBugs)
			aiGroup.POST("/test-connection", handler.TestAIConnection)
		}
	}

	return router
}
