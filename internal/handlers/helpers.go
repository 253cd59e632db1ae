// internal/handlers/helpers.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/nepshop-backend/internal/i18n"
	"github.com/javajoker/nepshop-backend/internal/models"
	"github.com/javajoker/nepshop-backend/internal/services"
	"github.com/javajoker/nepshop-backend/internal/utils"
)

// uploadField is the multipart field carrying a single image.
const uploadField = "file"

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func requireIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := utils.GetIdentityFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return models.Identity{}, false
	}
	return identity, true
}

// optionalUpload reads the image field if the request carries one.
func optionalUpload(c *gin.Context) (*services.FileUpload, bool) {
	header, err := c.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, true
	}
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return nil, false
	}

	upload, err := services.ReadFileUpload(header)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return nil, false
	}
	return upload, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
