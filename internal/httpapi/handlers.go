package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/example/ledger-engine/internal/assettype"
	"github.com/example/ledger-engine/internal/engine"
	"github.com/example/ledger-engine/internal/money"
	"github.com/example/ledger-engine/internal/reporting"
	"github.com/example/ledger-engine/internal/txn"
	"github.com/example/ledger-engine/internal/wallet"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal modules, return JSON.
// No business logic lives here — see internal/engine for that.
type Handlers struct {
	Engine    *engine.Engine
	Assets    *assettype.Store
	Reporting *reporting.Service
}

type movementRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	UserID         int64  `json:"user_id"`
	AssetType      string `json:"asset_type"`
	Amount         string `json:"amount"`
	Metadata       string `json:"metadata,omitempty"`
}

// Topup handles POST /api/v1/transactions/topup.
func (h Handlers) Topup(c *gin.Context) {
	h.processMovement(c, txn.MovementTopup)
}

// Bonus handles POST /api/v1/transactions/bonus.
func (h Handlers) Bonus(c *gin.Context) {
	h.processMovement(c, txn.MovementBonus)
}

// Spend handles POST /api/v1/transactions/spend.
func (h Handlers) Spend(c *gin.Context) {
	h.processMovement(c, txn.MovementSpend)
}

func (h Handlers) processMovement(c *gin.Context, movement txn.MovementType) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}

	asset, err := h.Assets.FindByCode(c.Request.Context(), req.AssetType)
	if err != nil {
		if errors.Is(err, assettype.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown or inactive asset_type"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "asset lookup failed"})
		return
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid amount"})
		return
	}

	t, err := h.Engine.Process(c.Request.Context(), txn.Request{
		IdempotencyKey: req.IdempotencyKey,
		Type:           movement,
		UserID:         req.UserID,
		AssetTypeID:    asset.ID,
		Amount:         amount,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// GetBalance handles GET /api/v1/wallets/{user_id}/balance?asset_type_id=….
func (h Handlers) GetBalance(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid user_id"})
		return
	}
	assetTypeID, err := strconv.Atoi(c.Query("asset_type_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid asset_type_id"})
		return
	}

	bal, err := h.Engine.GetBalance(c.Request.Context(), userID, assetTypeID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

// GetMovements handles GET /api/v1/wallets/{user_id}/movements?asset_type_id=…&from=…&to=….
//
// Looks up the wallet's surrogate id for (user_id, asset_type_id) via
// Engine.WalletID, then delegates the aggregation to internal/reporting.
func (h Handlers) GetMovements(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid user_id"})
		return
	}
	assetTypeID, err := strconv.Atoi(c.Query("asset_type_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid asset_type_id"})
		return
	}

	from, err := parseOptionalTime(c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid from"})
		return
	}
	to, err := parseOptionalTime(c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid to"})
		return
	}

	walletID, err := h.Engine.WalletID(c.Request.Context(), userID, assetTypeID)
	if err != nil {
		if errors.Is(err, wallet.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
			return
		}
		writeEngineError(c, err)
		return
	}

	summary, err := h.Reporting.Summarize(c.Request.Context(), walletID, from, to)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "movement summary failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func parseOptionalTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

// writeEngineError maps engine error types to HTTP statuses per spec §7:
// 422 validation, 400 business-rule errors, 500 storage/unexpected.
func writeEngineError(c *gin.Context, err error) {
	var valErr *engine.ValidationError
	if errors.As(err, &valErr) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErr.Error()})
		return
	}

	var fundsErr *engine.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":    "insufficient_funds",
			"balance":  fundsErr.Balance.String(),
			"required": fundsErr.Required.String(),
		})
		return
	}

	var cfgErr *engine.ConfigurationError
	if errors.As(err, &cfgErr) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "configuration_error"})
		return
	}

	if errors.Is(err, engine.ErrTimeout) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "timeout"})
		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage_error"})
}
