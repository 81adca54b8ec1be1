package httpapi

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/opd-ai/wabridge/limits"
	"github.com/opd-ai/wabridge/session"
)

const qrImageSize = 256

// sessionResponse is the wire shape of a single session, with the
// pairing challenge rendered as a PNG data URL when one is pending.
type sessionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	QR     string `json:"qr,omitempty"`
}

func renderSession(s *session.Session) sessionResponse {
	resp := sessionResponse{ID: s.ID(), Status: s.Status().String()}
	if challenge := s.Challenge(); challenge != "" {
		if png, err := qrcode.Encode(challenge, qrcode.Medium, qrImageSize); err == nil {
			resp.QR = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
		}
	}
	return resp
}

func (s *Server) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessions.All())
}

func (s *Server) createSession(c *gin.Context) {
	id := c.Param("id")
	if err := limits.ValidateSessionID(id); err != nil {
		badRequest(c, fmt.Errorf("sessionId: %w", err))
		return
	}
	sess := s.sessions.CreateOrGet(c.Request.Context(), id)
	c.JSON(http.StatusOK, renderSession(sess))
}

func (s *Server) getSession(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		writeError(c, session.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, renderSession(sess))
}

// sessionQR serves the pending pairing challenge as a raw PNG, or 404
// when the session has no challenge to show.
func (s *Server) sessionQR(c *gin.Context) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		writeError(c, session.ErrNotFound)
		return
	}
	challenge := sess.Challenge()
	if challenge == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No QR code available for this session"})
		return
	}
	png, err := qrcode.Encode(challenge, qrcode.Medium, qrImageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if _, ok := s.sessions.Get(id); !ok {
		writeError(c, session.ErrNotFound)
		return
	}
	s.sessions.Delete(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) listGroups(c *gin.Context) {
	groups, err := s.sessions.Groups(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func (s *Server) listContacts(c *gin.Context) {
	contacts, err := s.sessions.Contacts(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}
