package handler

import (
	"github.com/CageChen/filehub/internal/config"
	mfs "github.com/CageChen/filehub/internal/fs"
	"github.com/CageChen/filehub/internal/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every route of the filehub API.
func NewRouter(cfg *config.Config, files mfs.FileSystem, repo GitService) *gin.Engine {
	fileHandler := NewFileHandler(files)
	gitHandler := NewGitHandler(repo)
	invoker := NewInvoker(fileHandler, gitHandler)
	wsHandler := NewWSHandler(invoker, cfg.IsOriginAllowed)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(log.Writer()))
	r.Use(RequestID())
	r.Use(HostCheck(cfg))
	r.Use(cors.New(corsConfig(cfg)))

	api := r.Group("/api")
	{
		// Filesystem APIs
		api.GET("/dir", fileHandler.ListDir)
		api.POST("/dir", fileHandler.CreateDirectory)
		api.GET("/file", fileHandler.GetFile)
		api.PUT("/file", fileHandler.PutFile)
		api.POST("/file", fileHandler.CreateFile)
		api.DELETE("/node", fileHandler.DeleteNode)
		api.POST("/node/rename", fileHandler.RenameNode)

		// Git APIs
		api.GET("/git/branch", gitHandler.GetBranch)
		api.GET("/git/branches", gitHandler.GetBranches)
		api.POST("/git/checkout", gitHandler.Checkout)
		api.GET("/git/status", gitHandler.GetStatus)
		api.GET("/git/repo", gitHandler.GetRepo)
		api.POST("/git/init", gitHandler.InitRepo)

		// Invoke channel
		api.GET("/invoke", invoker.ListCommands)
		api.POST("/invoke/:command", invoker.HandleInvoke)
		api.GET("/ws", wsHandler.HandleWS)
	}

	return r
}
