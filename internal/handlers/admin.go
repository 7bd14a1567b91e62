package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Makoshaa/kia/internal/auth"
	"github.com/Makoshaa/kia/internal/models"
	"github.com/Makoshaa/kia/internal/storage"
)

type userRequest struct {
	Username    *string      `json:"username"`
	Password    *string      `json:"password"`
	Name        *string      `json:"name"`
	Role        *models.Role `json:"role"`
	DashboardID *string      `json:"dashboard_id"`
}

type dashboardRequest struct {
	Name               *string            `json:"name"`
	SourceKind         *models.SourceKind `json:"source_kind"`
	SourceURL          *string            `json:"source_url"`
	Owner              *string            `json:"owner"`
	ShowLeadSource     *bool              `json:"show_lead_source"`
	ShowLeadCategories *bool              `json:"show_lead_categories"`
	AutoRefresh        *bool              `json:"auto_refresh"`
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.repo.ListUsers(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if blank(req.Username) || blank(req.Password) || blank(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username, password and name are required"})
		return
	}

	user := &models.User{
		Username: strings.TrimSpace(*req.Username),
		Name:     strings.TrimSpace(*req.Name),
		Role:     models.RoleUser,
	}
	if status, msg := h.applyUserRequest(c, user, req); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	err := h.repo.CreateUser(c.Request.Context(), user)
	if errors.Is(err, storage.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
	}).Info("User created")
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetUser(ctx, uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	wasAdmin := user.Role == models.RoleAdmin
	if req.Username != nil {
		if blank(req.Username) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username must not be empty"})
			return
		}
		user.Username = strings.TrimSpace(*req.Username)
	}
	if req.Name != nil {
		if blank(req.Name) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
			return
		}
		user.Name = strings.TrimSpace(*req.Name)
	}
	if status, msg := h.applyUserRequest(c, user, req); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if wasAdmin && user.Role != models.RoleAdmin {
		if last, err := h.isLastAdmin(c); err != nil || last {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot demote the last administrator"})
			return
		}
	}

	err = h.repo.UpdateUser(ctx, user)
	if errors.Is(err, storage.ErrDuplicate) {
		c.JSON(http.StatusConflict, gin.H{"error": "Username is already taken"})
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to update user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.WithField("user_id", user.ID).Info("User updated")
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	identity, _ := auth.CurrentIdentity(c)
	if identity.UserID == uint(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetUser(ctx, uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if user.Role == models.RoleAdmin {
		if last, err := h.isLastAdmin(c); err != nil || last {
			c.JSON(http.StatusConflict, gin.H{"error": "Cannot delete the last administrator"})
			return
		}
	}

	if err := h.repo.DeleteUser(ctx, user.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.WithError(err).Error("Failed to delete user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.logger.WithField("user_id", user.ID).Info("User deleted")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// applyUserRequest copies password, role and dashboard from req. It returns a
// non-zero status when the request is invalid.
func (h *Handler) applyUserRequest(c *gin.Context, user *models.User, req userRequest) (int, string) {
	if req.Password != nil {
		if blank(req.Password) {
			return http.StatusBadRequest, "password must not be empty"
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			h.logger.WithError(err).Error("Failed to hash password")
			return http.StatusInternalServerError, "Internal server error"
		}
		user.PasswordHash = hash
	}

	if req.Role != nil {
		switch *req.Role {
		case models.RoleAdmin, models.RoleUser:
			user.Role = *req.Role
		default:
			return http.StatusBadRequest, "role must be admin or user"
		}
	}

	if req.DashboardID != nil {
		dashboardID := strings.TrimSpace(*req.DashboardID)
		if dashboardID != "" {
			_, err := h.repo.GetDashboard(c.Request.Context(), dashboardID)
			if errors.Is(err, storage.ErrNotFound) {
				return http.StatusBadRequest, "Dashboard does not exist"
			}
			if err != nil {
				h.logger.WithError(err).Error("Failed to load dashboard")
				return http.StatusInternalServerError, "Internal server error"
			}
		}
		user.DashboardID = dashboardID
	}
	return 0, ""
}

func (h *Handler) isLastAdmin(c *gin.Context) (bool, error) {
	n, err := h.repo.CountAdmins(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to count administrators")
		return false, err
	}
	return n <= 1, nil
}

func (h *Handler) ListDashboards(c *gin.Context) {
	dashboards, err := h.repo.ListDashboards(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list dashboards")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dashboards": dashboards})
}

func (h *Handler) CreateDashboard(c *gin.Context) {
	var req dashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if blank(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	dashboard := &models.Dashboard{SourceKind: models.SourceSheets}
	applyDashboardRequest(dashboard, req)
	if msg := validateDashboard(dashboard); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.repo.CreateDashboard(c.Request.Context(), dashboard); err != nil {
		h.logger.WithError(err).Error("Failed to create dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	h.track(*dashboard)

	h.logger.WithFields(logrus.Fields{
		"dashboard_id": dashboard.ID,
		"source_kind":  dashboard.SourceKind,
	}).Info("Dashboard created")
	c.JSON(http.StatusCreated, gin.H{"dashboard": dashboard})
}

func (h *Handler) UpdateDashboard(c *gin.Context) {
	var req dashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}

	ctx := c.Request.Context()
	dashboard, err := h.repo.GetDashboard(ctx, c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if req.Name != nil && blank(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
		return
	}
	applyDashboardRequest(dashboard, req)
	if msg := validateDashboard(dashboard); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if err := h.repo.UpdateDashboard(ctx, dashboard); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to update dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	h.track(*dashboard)

	h.logger.WithField("dashboard_id", dashboard.ID).Info("Dashboard updated")
	c.JSON(http.StatusOK, gin.H{"dashboard": dashboard})
}

func (h *Handler) DeleteDashboard(c *gin.Context) {
	id := c.Param("id")
	err := h.repo.DeleteDashboard(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dashboard not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	h.refresher.Untrack(id)

	h.logger.WithField("dashboard_id", id).Info("Dashboard deleted")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// track (re)registers the dashboard with the refresher. A dashboard whose
// source cannot be built stays in the database but is not refreshed.
func (h *Handler) track(dashboard models.Dashboard) {
	if err := h.refresher.Track(dashboard); err != nil {
		h.logger.WithError(err).WithField("dashboard_id", dashboard.ID).Warn("Dashboard is not tracked")
		h.refresher.Untrack(dashboard.ID)
	}
}

func applyDashboardRequest(d *models.Dashboard, req dashboardRequest) {
	if req.Name != nil {
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.SourceKind != nil {
		d.SourceKind = *req.SourceKind
	}
	if req.SourceURL != nil {
		d.SourceURL = strings.TrimSpace(*req.SourceURL)
	}
	if req.Owner != nil {
		d.Owner = strings.TrimSpace(*req.Owner)
	}
	if req.ShowLeadSource != nil {
		d.ShowLeadSource = *req.ShowLeadSource
	}
	if req.ShowLeadCategories != nil {
		d.ShowLeadCategories = *req.ShowLeadCategories
	}
	if req.AutoRefresh != nil {
		d.AutoRefresh = *req.AutoRefresh
	}
}

func validateDashboard(d *models.Dashboard) string {
	switch d.SourceKind {
	case models.SourceSheets, models.SourceEndpoint:
		if d.SourceURL == "" {
			return "source_url is required for " + string(d.SourceKind) + " dashboards"
		}
	case models.SourceDatabase:
	default:
		return "source_kind must be sheets, endpoint or database"
	}
	return ""
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
