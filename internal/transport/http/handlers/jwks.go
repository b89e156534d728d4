package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const jwksCacheControl = "public, max-age=3600"

// KeySetProvider renders the public verification keys as a JSON Web Key Set.
type KeySetProvider interface {
	JWKS() ([]byte, error)
}

// JWKSHandler provides the JSON Web Key Set used for offline JWT validation.
type JWKSHandler struct {
	keys KeySetProvider
}

// NewJWKSHandler constructs a JWKS handler backed by the supplied provider.
func NewJWKSHandler(keys KeySetProvider) *JWKSHandler {
	return &JWKSHandler{keys: keys}
}

// Keys serves the key set. HS256 deployments publish an empty set.
func (h *JWKSHandler) Keys(c *gin.Context) {
	if h == nil || h.keys == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse(c, "jwks not available"))
		return
	}

	payload, err := h.keys.JWKS()
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to render jwks"))
		return
	}

	c.Header("Cache-Control", jwksCacheControl)
	c.Data(http.StatusOK, "application/json", payload)
}
