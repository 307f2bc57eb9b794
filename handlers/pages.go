package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bustracker-app/bustracker/internal/config"
	"github.com/bustracker-app/bustracker/internal/identity"
	"github.com/bustracker-app/bustracker/internal/models"
	"github.com/bustracker-app/bustracker/internal/tokens"
	"github.com/bustracker-app/bustracker/pkg/logger"
	"github.com/bustracker-app/bustracker/pkg/middleware"
)

// UserDirectory is the read-only user/school surface the page handlers need.
// Satisfied by *users.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	AllowedSchools(ctx context.Context, userID int64) ([]models.School, error)
}

// PagesHandler serves the HTML pages behind (and in front of) the session
// gate.
type PagesHandler struct {
	cfg      *config.Config
	users    UserDirectory
	sessions middleware.SessionValidator
}

func NewPagesHandler(cfg *config.Config, users UserDirectory, sessions middleware.SessionValidator) *PagesHandler {
	return &PagesHandler{cfg: cfg, users: users, sessions: sessions}
}

// Register mounts the public landing page and the authenticated pages.
func (h *PagesHandler) Register(r gin.IRouter, auth gin.HandlerFunc) {
	r.GET("/", h.Landing)
	r.GET("/home", auth, h.Home)
	r.POST("/bus-runs", auth, h.CreateBusRun)
	r.GET("/bus-runs/:publicID", auth, h.ViewBusRun)
	r.GET("/bus-runs/:publicID/edit", auth, h.EditBusRun)
}

// Landing renders the public page, or forwards straight to /home when the
// browser already carries a valid session.
func (h *PagesHandler) Landing(c *gin.Context) {
	if h.hasValidSession(c) {
		c.Redirect(http.StatusFound, "/home")
		return
	}
	c.HTML(http.StatusOK, "public_landing.html", gin.H{
		"PageTitle": "Bus Tracker",
	})
}

// Home renders the run/bus picker for the user's allowed schools. An empty
// school list here means a grant or school was deactivated after sign-in; the
// page degrades to the same denial the callback would have shown.
func (h *PagesHandler) Home(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	ctx := c.Request.Context()

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		logger.Error("failed to load current user", zap.Int64("user_id", userID), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if user == nil {
		// Session outlived the account row.
		c.Redirect(http.StatusFound, "/logout")
		return
	}

	schools, err := h.users.AllowedSchools(ctx, userID)
	if err != nil {
		logger.Error("failed to load allowed schools", zap.Int64("user_id", userID), zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if len(schools) == 0 {
		renderMessage(c, http.StatusForbidden, messagePage{
			PageTitle:            "Access Denied",
			Heading:              "Access Denied",
			Message:              identity.KindNoSchoolAccess.Message(),
			PrimaryActionLabel:   "Log Out",
			PrimaryActionURL:     "/logout",
			SecondaryActionLabel: "Back to Home",
			SecondaryActionURL:   "/",
		})
		return
	}

	shortNames := make([]string, 0, len(schools))
	for _, s := range schools {
		shortNames = append(shortNames, s.ShortName)
	}

	demo := demoHomeOptions()
	c.HTML(http.StatusOK, "home.html", gin.H{
		"PageTitle":               "Bus Tracker Home",
		"CurrentUserDisplayName":  user.DisplayName(),
		"SchoolOptions":           schools,
		"SchoolShortNamesDisplay": strings.Join(shortNames, ", "),
		"RunTypeOptions":          demo.RunTypeOptions,
		"BusOptions":              demo.BusOptions,
		"DefaultRunTypeCode":      demo.DefaultRunTypeCode,
		"DefaultDateISO":          demo.DefaultDateISO,
	})
}

// CreateBusRun is the phase-1 route skeleton; run creation lands later.
func (h *PagesHandler) CreateBusRun(c *gin.Context) {
	renderMessage(c, http.StatusNotImplemented, messagePage{
		PageTitle:          "Not Implemented Yet",
		Heading:            "Track Buses Coming Soon",
		Message:            "The bus run route is wired up, but the create/find bus run logic is not implemented yet.",
		PrimaryActionLabel: "Back to Home",
		PrimaryActionURL:   "/home",
	})
}

// ViewBusRun renders the run board with placeholder data until run storage
// lands.
func (h *PagesHandler) ViewBusRun(c *gin.Context) {
	view := demoBusRunView(c.Param("publicID"))
	c.HTML(http.StatusOK, "bus_run.html", gin.H{
		"PageTitle":        "Bus Run",
		"BusRunPublicID":   view.BusRunPublicID,
		"SchoolName":       view.SchoolName,
		"RunDate":          view.RunDate,
		"RunTypeLabel":     view.RunTypeLabel,
		"ShowBusesRolling": view.ShowBusesRolling,
		"Tiles":            view.Tiles,
	})
}

// EditBusRun renders the bus selection editor with placeholder data.
func (h *PagesHandler) EditBusRun(c *gin.Context) {
	view := demoBusRunEditView(c.Param("publicID"))
	c.HTML(http.StatusOK, "bus_run_edit.html", gin.H{
		"PageTitle":      "Edit Bus Run",
		"BusRunPublicID": view.BusRunPublicID,
		"SchoolName":     view.SchoolName,
		"RunDate":        view.RunDate,
		"RunTypeLabel":   view.RunTypeLabel,
		"BusOptions":     view.BusOptions,
	})
}

func (h *PagesHandler) hasValidSession(c *gin.Context) bool {
	raw, err := c.Cookie(middleware.SessionCookieName)
	if err != nil || raw == "" {
		return false
	}
	userID, sessionToken, err := tokens.ParseSessionToken(h.cfg.Session.Secret, raw)
	if err != nil {
		return false
	}
	sess, err := h.sessions.Validate(c.Request.Context(), sessionToken)
	if err != nil || sess == nil {
		return false
	}
	return sess.UserID == userID
}
