package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joelkehle/lossaudit/internal/auth"
	"github.com/joelkehle/lossaudit/internal/lossengine"
	"github.com/joelkehle/lossaudit/internal/report"
	"github.com/joelkehle/lossaudit/internal/store"
)

func (s *Server) handleHealth(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		s.log.Warn().Err(err).Msg("health check: store unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (s *Server) handleCreateUser(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	u, err := s.auth.Register(c.Request().Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, store.ErrUsernameTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidRegistration):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.JSON(http.StatusCreated, u)
}

func (s *Server) handleToken(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	token, u, err := s.auth.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
		"role":         u.Role,
	})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	in := lossengine.DefaultInput()
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := in.Validate(); err != nil {
		return err
	}

	ctx := c.Request().Context()
	analysis := s.engine.Analyze(ctx, in)

	var owner *int64
	if claims, ok := auth.ClaimsFrom(c); ok && claims.UserID > 0 {
		owner = &claims.UserID
	}
	id, err := s.store.Create(ctx, in, analysis, owner)
	if errors.Is(err, store.ErrUnknownOwner) {
		return echo.NewHTTPError(http.StatusUnauthorized, "token owner is no longer registered")
	}
	if err != nil {
		return err
	}
	analysis.ID = &id
	s.log.Info().Int64("workflow_id", id).Str("severity", string(analysis.Severity)).
		Str("diagnosis", string(analysis.DiagnosisSource)).Msg("workflow analyzed")
	return c.JSON(http.StatusOK, analysis)
}

func (s *Server) handleListWorkflows(c echo.Context) error {
	recs, err := s.store.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recs)
}

func (s *Server) loadRecord(c echo.Context, param string) (store.Record, error) {
	id, err := parseID(c, param)
	if err != nil {
		return store.Record{}, err
	}
	return s.store.Get(c.Request().Context(), id)
}

func (s *Server) handleGetWorkflow(c echo.Context) error {
	rec, err := s.loadRecord(c, "id")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) handleDeleteWorkflow(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := s.store.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": id})
}

type simulateRequest struct {
	AutoOptimize     bool `json:"auto_optimize"`
	PeopleInvolved   *int `json:"people_involved"`
	ApprovalsPerTask *int `json:"approvals_per_task"`
	ToolCount        *int `json:"tool_count"`
	MonthlyVolume    *int `json:"monthly_volume"`
}

// scenario starts from the stored input and overrides whatever the
// request names.
func (r simulateRequest) scenario(in lossengine.WorkflowInput) lossengine.Scenario {
	base := lossengine.ScenarioFromInput(in)
	if r.AutoOptimize {
		return lossengine.AutoOptimize(base)
	}
	if r.PeopleInvolved != nil {
		base.PeopleInvolved = *r.PeopleInvolved
	}
	if r.ApprovalsPerTask != nil {
		base.ApprovalsPerTask = *r.ApprovalsPerTask
	}
	if r.ToolCount != nil {
		base.ToolCount = *r.ToolCount
	}
	if r.MonthlyVolume != nil {
		base.MonthlyVolume = *r.MonthlyVolume
	}
	return base
}

func (s *Server) handleSimulate(c echo.Context) error {
	rec, err := s.loadRecord(c, "id")
	if err != nil {
		return err
	}
	var req simulateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sc := req.scenario(rec.Input)
	if err := sc.Validate(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lossengine.Simulate(rec.Input, rec.Result, sc))
}

type workflowRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleCompare(c echo.Context) error {
	a, err := s.loadRecord(c, "a")
	if err != nil {
		return err
	}
	b, err := s.loadRecord(c, "b")
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"a":          workflowRef{ID: a.ID, Name: a.Name},
		"b":          workflowRef{ID: b.ID, Name: b.Name},
		"comparison": lossengine.Compare(a.Result, b.Result),
	})
}

func (s *Server) envelope(c echo.Context) (report.Envelope, error) {
	rec, err := s.loadRecord(c, "id")
	if err != nil {
		return report.Envelope{}, err
	}
	return report.Envelope{Input: rec.Input, Analysis: rec.Result, GeneratedAt: s.clock()}, nil
}

func (s *Server) handleExportMarkdown(c echo.Context) error {
	env, err := s.envelope(c)
	if err != nil {
		return err
	}
	md := report.BuildAuditReport(env.Input, env.Analysis, env.GeneratedAt)
	setAttachment(c, fmt.Sprintf("Audit_Report_%d.md", *env.Analysis.ID))
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func (s *Server) handleExportPDF(c echo.Context) error {
	env, err := s.envelope(c)
	if err != nil {
		return err
	}
	return s.renderPDF(c, report.AuditDocument(env), fmt.Sprintf("Audit_Report_%d.pdf", *env.Analysis.ID))
}

func (s *Server) handleExportDeck(c echo.Context) error {
	env, err := s.envelope(c)
	if err != nil {
		return err
	}
	return s.renderPDF(c, report.DeckDocument(env), fmt.Sprintf("Executive_Deck_%d.pdf", *env.Analysis.ID))
}

func (s *Server) renderPDF(c echo.Context, doc report.Document, filename string) error {
	if s.pdf == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "pdf rendering is not configured")
	}
	blob, err := s.pdf.Render(c.Request().Context(), doc)
	if err != nil {
		return fmt.Errorf("render %s: %w", filename, err)
	}
	setAttachment(c, filename)
	return c.Blob(http.StatusOK, "application/pdf", blob)
}

func setAttachment(c echo.Context, filename string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
}
