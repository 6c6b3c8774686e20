package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"portrelay/internal/rule"
	"portrelay/internal/shared/errors"
	"portrelay/internal/shared/utils"
)

// createRuleResponse is the exact {"rule_id": N} body spec.md §4.6's POST
// /rules contract requires.
type createRuleResponse struct {
	RuleID rule.ID `json:"rule_id"`
}

// Healthz is a supplemented liveness endpoint (not in spec.md's §4.6
// surface, added per SPEC_FULL.md §5) used by deployment probes.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListRules handles GET /rules. The body is a bare JSON array, matching
// spec.md's wire contract exactly — it is not wrapped in an envelope,
// since the live rule set (not a generic "list resource") is the payload.
func (h *Handler) ListRules(c *gin.Context) {
	entries := h.manager.Store().List()
	rules := make([]rule.Rule, len(entries))
	for i, e := range entries {
		rules[i] = e.Rule
	}
	c.JSON(http.StatusOK, rules)
}

// GetRule handles the supplemented GET /rules/{id} (SPEC_FULL.md §5).
func (h *Handler) GetRule(c *gin.Context) {
	id, ok := parseRuleID(c)
	if !ok {
		return
	}

	r, err := h.manager.Store().Get(id)
	if err != nil {
		h.logger.Warn("get rule failed", "rule_id", uint64(id), "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateRule handles POST /rules.
func (h *Handler) CreateRule(c *gin.Context) {
	var r rule.Rule
	if err := c.ShouldBindJSON(&r); err != nil {
		h.logger.Warn("invalid request body for create rule", "error", err, "ip", c.ClientIP())
		utils.ErrorResponseWithError(c, errors.NewConfigError("malformed request body", err.Error()))
		return
	}

	if err := utils.ValidateStruct(r); err != nil {
		h.logger.Warn("rule validation failed", "error", err, "ip", c.ClientIP())
		utils.ErrorResponseWithError(c, err)
		return
	}

	id, err := h.manager.AddRule(r)
	if err != nil {
		h.logger.Warn("create rule rejected", "error", err, "ip", c.ClientIP())
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createRuleResponse{RuleID: id})
}

// UpdateRule handles PUT /rules/{id}. Per spec.md §4.6/§9 this updates the
// store only; the running session (if any) is not restarted.
func (h *Handler) UpdateRule(c *gin.Context) {
	id, ok := parseRuleID(c)
	if !ok {
		return
	}

	var r rule.Rule
	if err := c.ShouldBindJSON(&r); err != nil {
		h.logger.Warn("invalid request body for update rule", "rule_id", uint64(id), "error", err)
		utils.ErrorResponseWithError(c, errors.NewConfigError("malformed request body", err.Error()))
		return
	}

	if err := utils.ValidateStruct(r); err != nil {
		h.logger.Warn("rule validation failed", "rule_id", uint64(id), "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	if _, err := h.manager.UpdateRule(id, r); err != nil {
		h.logger.Warn("update rule failed", "rule_id", uint64(id), "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// DeleteRule handles DELETE /rules/{id}.
func (h *Handler) DeleteRule(c *gin.Context) {
	id, ok := parseRuleID(c)
	if !ok {
		return
	}

	if _, err := h.manager.RemoveRule(id); err != nil {
		h.logger.Warn("delete rule failed", "rule_id", uint64(id), "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseRuleID(c *gin.Context) (rule.ID, bool) {
	raw := c.Param("id")
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("rule not found", raw))
		return 0, false
	}
	return rule.ID(n), true
}
