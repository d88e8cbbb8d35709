package ginserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"staycal/internal/app/commands"
	"staycal/internal/app/dto"
	auditapp "staycal/internal/app/handlers/audit"
	calendarapp "staycal/internal/app/handlers/calendar"
	"staycal/internal/domain/reconciliation"
	"staycal/internal/domain/shared/daterange"
)

type AdminHandler struct {
	Commands commands.Bus
}

type windowRequest struct {
	Start  string `json:"start"`
	Months int    `json:"months"`
}

func (w windowRequest) window() (reconciliation.Window, error) {
	return reconciliation.ParseWindow(w.Start, w.Months)
}

type auditRequest struct {
	windowRequest
	RunID string `json:"run_id"`
}

func (h AdminHandler) Audit(c *gin.Context) {
	var req auditRequest
	if !bindOptional(c, &req) {
		return
	}
	w, err := req.window()
	if err != nil {
		writeError(c, err)
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	cmd := auditapp.RunAuditCommand{PropertyID: c.Param("id"), RunID: req.RunID, Window: w}
	result, err := commands.Dispatch[auditapp.RunAuditCommand, *dto.AuditResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type correctionsRequest struct {
	windowRequest
	MinSeverity string   `json:"min_severity"`
	Dates       []string `json:"dates"`
	Kinds       []string `json:"kinds"`
}

func (h AdminHandler) Corrections(c *gin.Context) {
	var req correctionsRequest
	if !bindOptional(c, &req) {
		return
	}
	w, err := req.window()
	if err != nil {
		writeError(c, err)
		return
	}
	cmd := calendarapp.ApplyCorrectionsCommand{PropertyID: c.Param("id"), Window: w}
	if req.MinSeverity != "" {
		sev, ok := reconciliation.ParseSeverity(req.MinSeverity)
		if !ok {
			badRequest(c, fmt.Errorf("unknown severity %q", req.MinSeverity))
			return
		}
		cmd.MinSeverity = sev
	}
	for _, raw := range req.Dates {
		d, err := daterange.ParseDate(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		cmd.Dates = append(cmd.Dates, d)
	}
	for _, k := range req.Kinds {
		cmd.Kinds = append(cmd.Kinds, reconciliation.Kind(k))
	}
	result, err := commands.Dispatch[calendarapp.ApplyCorrectionsCommand, *dto.CorrectionsResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type regenerateRequest struct {
	From   string `json:"from"`
	Months int    `json:"months"`
}

func (h AdminHandler) RegeneratePrices(c *gin.Context) {
	var req regenerateRequest
	if !bindOptional(c, &req) {
		return
	}
	cmd := calendarapp.RegeneratePricesCommand{PropertyID: c.Param("id"), Months: req.Months}
	if req.From != "" {
		from, err := time.Parse("2006-01", strings.TrimSpace(req.From))
		if err != nil {
			badRequest(c, fmt.Errorf("from must be YYYY-MM"))
			return
		}
		cmd.From = from.UTC()
	}
	result, err := commands.Dispatch[calendarapp.RegeneratePricesCommand, *dto.RegenerationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// bindOptional accepts an empty body as the zero request.
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err)
		return false
	}
	return true
}

var _ AdminHTTP = AdminHandler{}
