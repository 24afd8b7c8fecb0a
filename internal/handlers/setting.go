package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/authz"
	"github.com/yukikurage/workspace-api/internal/dto"
	"github.com/yukikurage/workspace-api/internal/models"
	"github.com/yukikurage/workspace-api/internal/services"
)

// SettingHandler serves workspace settings under /workspaces/:id/settings and
// system settings under /settings.
type SettingHandler struct {
	settingService *services.SettingService
	eval           *authz.Evaluator
}

func NewSettingHandler(settingService *services.SettingService, eval *authz.Evaluator) *SettingHandler {
	return &SettingHandler{
		settingService: settingService,
		eval:           eval,
	}
}

// settingScope is the workspace for workspace routes and nil for system routes.
func settingScope(c *gin.Context) (*uint64, bool) {
	if c.Param("id") == "" {
		return nil, true
	}
	workspaceID, ok := workspaceParam(c)
	if !ok {
		return nil, false
	}
	return &workspaceID, true
}

func (h *SettingHandler) ListSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := settingScope(c)
	if !ok {
		return
	}

	settings, err := h.settingService.ListSettings(c.Request.Context(), actor, workspaceID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	pc := presentContext(actor, h.eval)
	c.JSON(http.StatusOK, mapItems(settings, func(s *models.Setting) dto.SettingDTO {
		return dto.ToSettingDTO(s, pc)
	}))
}

func (h *SettingHandler) GetSetting(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := settingScope(c)
	if !ok {
		return
	}

	setting, err := h.settingService.GetSetting(c.Request.Context(), actor, workspaceID, c.Param("key"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSettingDTO(setting, presentContext(actor, h.eval)))
}

// SetSetting creates or overwrites the setting named by :key
func (h *SettingHandler) SetSetting(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := settingScope(c)
	if !ok {
		return
	}

	var req struct {
		Value    string `json:"value"`
		IsSecret *bool  `json:"is_secret"`
	}
	if !bindJSON(c, &req) {
		return
	}

	setting, err := h.settingService.SetSetting(c.Request.Context(), actor, services.SetSettingInput{
		WorkspaceID: workspaceID,
		Key:         c.Param("key"),
		Value:       req.Value,
		IsSecret:    req.IsSecret,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSettingDTO(setting, presentContext(actor, h.eval)))
}

// DeleteSetting removes the setting named by :key. System settings cannot be
// deleted.
func (h *SettingHandler) DeleteSetting(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	workspaceID, ok := settingScope(c)
	if !ok {
		return
	}

	setting, err := h.settingService.GetSetting(c.Request.Context(), actor, workspaceID, c.Param("key"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := h.settingService.DeleteSetting(c.Request.Context(), actor, setting.ID); err != nil {
		respondServiceError(c, err)
		return
	}

	noContent(c)
}
