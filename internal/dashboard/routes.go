package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/campaignyard/internal/campaign"
	"github.com/zulandar/campaignyard/internal/scheduler"
	"go.uber.org/zap"
)

type handlers struct {
	engine *campaign.Engine
	runner LoopRunner
	log    *zap.Logger
}

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, h *handlers) {
	api := router.Group("/api")

	// Reads.
	api.GET("/campaign", h.getCampaign)
	api.GET("/timeline", h.getTimeline)
	api.GET("/cards", h.getCards)
	api.GET("/loops", h.getLoops)
	api.GET("/loops/insights", h.getInsights)

	// Timeline.
	api.POST("/tracks", h.addTrack)
	api.DELETE("/tracks/:id", h.removeTrack)
	api.POST("/clips", h.addClip)
	api.PATCH("/clips/:id/move", h.moveClip)
	api.PATCH("/clips/:id/resize", h.resizeClip)
	api.DELETE("/clips/:id", h.removeClip)

	// Cards and links.
	api.POST("/cards", h.addCard)
	api.DELETE("/cards/:id", h.removeCard)
	api.POST("/links", h.link)
	api.DELETE("/links/:cardId", h.unlink)

	// Loops.
	api.POST("/suggestions/:id/accept", h.acceptSuggestion)
	api.POST("/suggestions/:id/decline", h.declineSuggestion)
	if h.runner != nil {
		api.POST("/loops/:id/run", h.runLoop)
	}

	// Memory.
	api.GET("/memories", h.getMemories)
	api.POST("/memories", h.addMemory)
	api.DELETE("/memories/:id", h.removeMemory)
	api.POST("/memories/:id/links", h.linkMemory)
	api.DELETE("/memory-links/:id", h.unlinkMemory)

	api.PATCH("/meta", h.updateMeta)

	api.GET("/events", handleSSE(h.engine))
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *handlers) getCampaign(c *gin.Context) {
	c.JSON(http.StatusOK, campaignSummary(h.engine))
}

func (h *handlers) getTimeline(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Timeline())
}

// getCards returns the card store; ?visible=true returns only the
// filtered and sorted list.
func (h *handlers) getCards(c *gin.Context) {
	if c.Query("visible") == "true" {
		c.JSON(http.StatusOK, gin.H{"cards": h.engine.VisibleCards()})
		return
	}
	c.JSON(http.StatusOK, h.engine.Cards())
}

func (h *handlers) getLoops(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Loops())
}

func (h *handlers) getInsights(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.LoopInsights())
}

type addTrackRequest struct {
	Name   string `json:"name" binding:"required"`
	Colour string `json:"colour"`
}

func (h *handlers) addTrack(c *gin.Context) {
	var req addTrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": h.engine.AddTrack(req.Name, req.Colour)})
}

func (h *handlers) removeTrack(c *gin.Context) {
	h.engine.RemoveTrack(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// created answers 201 with the new id, or 204 when the engine declined to
// create anything.
func created(c *gin.Context, id string) {
	if id == "" {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handlers) addClip(c *gin.Context) {
	var spec campaign.ClipSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, err)
		return
	}
	if spec.TrackID == "" {
		badRequest(c, errors.New("trackId is required"))
		return
	}
	created(c, h.engine.AddClip(spec))
}

// moveRequest keeps the clip on its current track when TrackID is empty.
type moveRequest struct {
	TrackID   string   `json:"trackId"`
	StartTime *float64 `json:"startTime" binding:"required"`
}

func (h *handlers) moveClip(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := c.Param("id")
	if req.TrackID == "" {
		clip, ok := h.engine.Clip(id)
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		req.TrackID = clip.TrackID
	}
	h.engine.MoveClip(id, req.TrackID, *req.StartTime)
	c.Status(http.StatusNoContent)
}

type resizeRequest struct {
	Duration *float64 `json:"duration" binding:"required"`
}

func (h *handlers) resizeClip(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.engine.ResizeClip(c.Param("id"), *req.Duration)
	c.Status(http.StatusNoContent)
}

func (h *handlers) removeClip(c *gin.Context) {
	h.engine.RemoveClip(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) addCard(c *gin.Context) {
	var spec campaign.CardSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, err)
		return
	}
	if !spec.Type.Valid() {
		badRequest(c, errors.New("unknown card type "+string(spec.Type)))
		return
	}
	created(c, h.engine.AddCard(spec))
}

func (h *handlers) removeCard(c *gin.Context) {
	h.engine.RemoveCard(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type linkRequest struct {
	ClipID string `json:"clipId" binding:"required"`
	CardID string `json:"cardId" binding:"required"`
}

func (h *handlers) link(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.engine.LinkCardToClip(req.ClipID, req.CardID)
	c.Status(http.StatusNoContent)
}

func (h *handlers) unlink(c *gin.Context) {
	h.engine.UnlinkCard(c.Param("cardId"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) acceptSuggestion(c *gin.Context) {
	ids := h.engine.AcceptSuggestion(c.Param("id"))
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"created": ids})
}

func (h *handlers) declineSuggestion(c *gin.Context) {
	h.engine.DeclineSuggestion(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) runLoop(c *gin.Context) {
	ev, err := h.runner.RunLoop(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, scheduler.ErrUnknownLoop):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, scheduler.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case err != nil:
		h.log.Error("run loop", zap.String("loop", c.Param("id")), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case ev.ID == "":
		// Disabled loop.
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, ev)
	}
}

// getMemories returns the memory store, or with ?entityType=&entityId=
// only the memories linked to that entity.
func (h *handlers) getMemories(c *gin.Context) {
	if t := c.Query("entityType"); t != "" {
		ms := h.engine.MemoriesForEntity(campaign.EntityType(t), c.Query("entityId"))
		if ms == nil {
			ms = []campaign.Memory{}
		}
		c.JSON(http.StatusOK, gin.H{"memories": ms})
		return
	}
	c.JSON(http.StatusOK, h.engine.Memories())
}

func (h *handlers) addMemory(c *gin.Context) {
	var spec campaign.MemorySpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		badRequest(c, err)
		return
	}
	if !spec.Type.Valid() {
		badRequest(c, errors.New("unknown memory type "+string(spec.Type)))
		return
	}
	created(c, h.engine.AddMemory(spec))
}

func (h *handlers) removeMemory(c *gin.Context) {
	h.engine.RemoveMemory(c.Param("id"))
	c.Status(http.StatusNoContent)
}

type memoryLinkRequest struct {
	EntityType campaign.EntityType `json:"entityType" binding:"required"`
	EntityID   string              `json:"entityId" binding:"required"`
}

// linkMemory returns 404 when either the memory or the entity is unknown.
func (h *handlers) linkMemory(c *gin.Context) {
	var req memoryLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	id := h.engine.AddMemoryLink(c.Param("id"), req.EntityType, req.EntityID)
	if id == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown memory or entity"})
		return
	}
	created(c, id)
}

func (h *handlers) unlinkMemory(c *gin.Context) {
	h.engine.RemoveMemoryLink(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (h *handlers) updateMeta(c *gin.Context) {
	var u campaign.MetaUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		badRequest(c, err)
		return
	}
	h.engine.UpdateCampaignMeta(u)
	c.JSON(http.StatusOK, h.engine.Meta())
}
