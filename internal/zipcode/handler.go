package zipcode

import (
	"zipcode_map/platform/apperr"
	"zipcode_map/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the zip code JSON endpoints.
type Handler struct {
	svc       *Service
	catalogue *Catalogue
}

func NewHandler(svc *Service, catalogue *Catalogue) *Handler {
	return &Handler{svc: svc, catalogue: catalogue}
}

// ListCountries handles GET /api/v1/countries
func (h *Handler) ListCountries(c *gin.Context) {
	httpkit.OK(c, gin.H{"countries": h.catalogue.All()})
}

// Lookup handles GET /api/v1/zipcodes/:source/:zip
func (h *Handler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindUri(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest("source and zip are required"))
		return
	}

	result, err := h.svc.Lookup(c.Request.Context(), req.Source, req.Zip)
	if err != nil {
		_ = c.Error(err)
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, result)
}
