package controller

import (
	"errors"
	"net/http"

	"github.com/Scalingo/popular-repos/config"
	"github.com/Scalingo/popular-repos/model"
	"github.com/Scalingo/popular-repos/session"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type APIController interface {
	GetLanguages(ctx *gin.Context)
	CreateSession(ctx *gin.Context)
	GetSessionStatus(ctx *gin.Context)
	SelectLanguage(ctx *gin.Context)
	DeleteSession(ctx *gin.Context)
}

type apiController struct {
	sessions *session.Registry
	config   config.Config
}

type LanguagesResponse struct {
	Languages []model.Language `json:"languages"`
}

type SessionResponse struct {
	ID     string       `json:"id"`
	Status model.Status `json:"status"`
}

type SelectLanguageRequest struct {
	Language model.Language `json:"language" binding:"required"`
}

func NewAPIController(config config.Config, sessions *session.Registry) APIController {
	return apiController{
		sessions: sessions,
		config:   config,
	}
}

// RegisterRoutes attach all the controller routes to the router group
func RegisterRoutes(api *gin.RouterGroup, c APIController) {
	api.GET("/languages", c.GetLanguages)
	api.POST("/sessions", c.CreateSession)
	api.GET("/sessions/:id", c.GetSessionStatus)
	api.PUT("/sessions/:id/language", c.SelectLanguage)
	api.DELETE("/sessions/:id", c.DeleteSession)
}

func (s apiController) GetLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, LanguagesResponse{Languages: model.Languages()})
}

func (s apiController) CreateSession(c *gin.Context) {
	id, cache, err := s.sessions.Create()
	if err != nil {
		c.JSON(statusCode(err), model.NewAPIError(err))
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{ID: id, Status: cache.Status()})
}

func (s apiController) GetSessionStatus(c *gin.Context) {
	cache, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(statusCode(err), model.NewAPIError(err))
		return
	}

	c.JSON(http.StatusOK, cache.Status())
}

// SelectLanguage return the status right after the selection
// the fetch (if any) is still running, clients poll GetSessionStatus
func (s apiController) SelectLanguage(c *gin.Context) {
	var request SelectLanguageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		log.WithError(err).Debug("invalid select language request")
		c.JSON(http.StatusBadRequest, model.NewAPIError(model.ErrInvalidRequest))
		return
	}

	cache, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(statusCode(err), model.NewAPIError(err))
		return
	}

	if err := cache.Select(request.Language); err != nil {
		c.JSON(statusCode(err), model.NewAPIError(err))
		return
	}

	c.JSON(http.StatusAccepted, cache.Status())
}

func (s apiController) DeleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c, c.Param("id")); err != nil {
		c.JSON(statusCode(err), model.NewAPIError(err))
		return
	}

	c.Status(http.StatusNoContent)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrCacheClosed):
		return http.StatusNotFound
	case errors.Is(err, model.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
