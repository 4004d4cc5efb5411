package ports

import "github.com/gin-gonic/gin"

type PlaybackHTTPHandler interface {
	AuthorizeVideo(c *gin.Context)
	AuthorizeLivestreaming(c *gin.Context)
}
