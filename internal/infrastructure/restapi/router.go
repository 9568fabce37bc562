package restapi

import (
	"net/http"
	"net/http/pprof"

	"abi_resolver/internal/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterOptions включает необязательные эндпоинты.
type RouterOptions struct {
	Metrics bool
	Pprof   bool
}

// SetupRouter настраивает и возвращает экземпляр Gin роутера.
func SetupRouter(networks *NetworkHandler, abis *AbiHandler, logger *zap.Logger, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), utils.ZapLoggerMiddleware(logger))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, SessionHeader, utils.RequestIDHeader)
	corsCfg.ExposeHeaders = []string{utils.RequestIDHeader}
	router.Use(cors.New(corsCfg))

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if opts.Pprof {
		debug := router.Group("/debug/pprof")
		debug.GET("/", gin.WrapF(pprof.Index))
		debug.GET("/profile", gin.WrapF(pprof.Profile))
		debug.GET("/trace", gin.WrapF(pprof.Trace))
		debug.GET("/:name", func(c *gin.Context) { pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request) })
	}

	// Группа для API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/networks", networks.ListNetworks)
		v1.POST("/networks", networks.AddNetwork)
		v1.DELETE("/networks/:chainId", networks.RemoveNetwork)
		v1.GET("/connector-config", networks.GetConnectorConfig)

		contract := v1.Group("/contracts/:chainId/:address")
		contract.GET("/abi", abis.GetAbi)
		contract.PUT("/abi", abis.PutAbi)
		contract.DELETE("/abi", abis.DeleteAbi)
		contract.POST("/decompile", abis.Decompile)
		contract.GET("/proxy", abis.GetProxy)
	}

	return router
}
