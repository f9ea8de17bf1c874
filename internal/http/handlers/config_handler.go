package handlers

import (
	"github.com/gin-gonic/gin"
)

// ActiveConfig godoc
// @ID          activeConfig
// @Summary     Active matching configuration
// @Tags        Config
// @Produce     json
// @Success     200  {object} domain.MatchingConfig
// @Failure     404  {object} handlers.ErrorResponse "No active configuration"
// @Failure     409  {object} handlers.ErrorResponse "Active configuration is invalid"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /config [get]
func (h *Handlers) ActiveConfig(c *gin.Context) {
	cfg, err := h.configs.Active(c.Request.Context())
	if err != nil {
		serviceFail(c, err)
		return
	}
	ok(c, cfg)
}
