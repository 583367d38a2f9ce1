package listing

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the listing endpoints. protected must already carry
// the auth middleware; uploadLinks runs before Edit.
func RegisterRoutes(public, protected *gin.RouterGroup, h *Handler, uploadLinks gin.HandlerFunc) {
	public.GET("/services/search", h.Search)
	public.GET("/services/:serviceId", h.GetByID)

	protected.POST("/services", h.Create)
	protected.GET("/services/mine", h.ListMine)
	protected.PUT("/services/:serviceId", uploadLinks, h.Edit)
}
