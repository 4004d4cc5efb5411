package http

import (
	"net/http"

	"vodgate/internal/core/domain"
	"vodgate/internal/core/ports"
	"vodgate/pkg/errors"
	"vodgate/pkg/logger"
	"vodgate/pkg/validation"

	"github.com/gin-gonic/gin"
)

type PlaybackHandler struct {
	authorization ports.AuthorizationService
}

func NewPlaybackHandler(authorization ports.AuthorizationService) *PlaybackHandler {
	return &PlaybackHandler{
		authorization: authorization,
	}
}

var _ ports.PlaybackHTTPHandler = (*PlaybackHandler)(nil)

func (h *PlaybackHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.POST("/videos/authorize", h.AuthorizeVideo)
		api.POST("/livestreamings/authorize", h.AuthorizeLivestreaming)
	}
}

// AuthorizeRequest is the body of both authorize endpoints. Livestreaming
// clients may name the id livestreamingId.
type AuthorizeRequest struct {
	UserID          string `json:"userId"`
	VideoID         string `json:"videoId"`
	LivestreamingID string `json:"livestreamingId"`
	IDToken         string `json:"idToken"`
	PublicAccess    bool   `json:"publicAccess"`
}

type AuthorizeResponse struct {
	SrcURL string `json:"srcUrl"`
}

func (h *PlaybackHandler) AuthorizeVideo(c *gin.Context) {
	h.authorize(c, domain.KindVideo)
}

func (h *PlaybackHandler) AuthorizeLivestreaming(c *gin.Context) {
	h.authorize(c, domain.KindLivestreaming)
}

func (h *PlaybackHandler) authorize(c *gin.Context, kind domain.ContentKind) {
	var body AuthorizeRequest
	// A malformed body is reported like any other missing parameter.
	if err := c.ShouldBindJSON(&body); err != nil {
		_ = c.Error(errors.NewNotFoundError("content").WithCause(err))
		return
	}

	contentID := body.VideoID
	if contentID == "" {
		contentID = body.LivestreamingID
	}
	if err := validation.ValidateContentID(contentID); err != nil {
		_ = c.Error(errors.NewNotFoundError("content").WithCause(err))
		return
	}

	req := domain.AuthorizationRequest{
		Kind:         kind,
		ContentID:    domain.ContentID(contentID),
		PublicAccess: body.PublicAccess,
	}
	ctx := logger.ContextWithContentID(c.Request.Context(), contentID)

	if !body.PublicAccess {
		if err := validation.ValidateUserID(body.UserID); err != nil {
			_ = c.Error(errors.NewNotFoundError("user").WithCause(err))
			return
		}
		if err := validation.ValidateNonEmptyString(body.IDToken, "idToken"); err != nil {
			_ = c.Error(errors.NewNotFoundError("id token").WithCause(err))
			return
		}
		if err := validation.ValidateIDToken(body.IDToken); err != nil {
			_ = c.Error(errors.NewIdentityMismatchError("malformed id token").WithCause(err))
			return
		}
		req.UserID = domain.UserID(body.UserID)
		req.IDToken = body.IDToken
		ctx = logger.ContextWithUserID(ctx, body.UserID)
	}
	c.Request = c.Request.WithContext(ctx)

	auth, err := h.authorization.Authorize(ctx, req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	http.SetCookie(c.Writer, auth.Cookie)
	c.JSON(http.StatusOK, AuthorizeResponse{SrcURL: auth.Grant.SourceURL})
}
