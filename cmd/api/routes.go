package main

import (
	"github.com/example/ledger-engine/internal/assettype"
	"github.com/example/ledger-engine/internal/engine"
	"github.com/example/ledger-engine/internal/httpapi"
	"github.com/example/ledger-engine/internal/reporting"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
//
// No authentication middleware is installed here: per spec §1, authn/authz
// is explicitly out of scope and assumed to be handled upstream of this
// service.
func registerRoutes(r *gin.Engine, eng *engine.Engine, assets *assettype.Store, reportingSvc *reporting.Service) {
	r.GET("/health", httpapi.Health)

	h := httpapi.Handlers{
		Engine:    eng,
		Assets:    assets,
		Reporting: reportingSvc,
	}

	v1 := r.Group("/api/v1")
	{
		txns := v1.Group("/transactions")
		txns.POST("/topup", h.Topup)
		txns.POST("/bonus", h.Bonus)
		txns.POST("/spend", h.Spend)

		wallets := v1.Group("/wallets")
		wallets.GET("/:user_id/balance", h.GetBalance)
		wallets.GET("/:user_id/movements", h.GetMovements)
	}
}
