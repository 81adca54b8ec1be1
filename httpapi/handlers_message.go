package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opd-ai/wabridge/delivery"
	"github.com/opd-ai/wabridge/limits"
)

type sendRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	To        string `json:"to" binding:"required"`
	Message   string `json:"message"`
	MediaURL  string `json:"mediaUrl"`
	MediaType string `json:"mediaType"`
	FileName  string `json:"fileName"`
	Caption   string `json:"caption"`
}

func (r sendRequest) validate() error {
	if err := limits.ValidateSessionID(r.SessionID); err != nil {
		return fmt.Errorf("sessionId: %w", err)
	}
	if err := limits.ValidatePhone(r.To); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if r.Message != "" {
		if err := limits.ValidateMessage(r.Message); err != nil {
			return fmt.Errorf("message: %w", err)
		}
	}
	if err := limits.ValidateCaption(r.Caption); err != nil {
		return fmt.Errorf("caption: %w", err)
	}
	if err := limits.ValidateFileName(r.FileName); err != nil {
		return fmt.Errorf("fileName: %w", err)
	}
	return nil
}

func (r sendRequest) payload() delivery.Payload {
	return delivery.Payload{
		Text:      r.Message,
		MediaURL:  r.MediaURL,
		MediaType: r.MediaType,
		FileName:  r.FileName,
		Caption:   r.Caption,
	}
}

func (s *Server) send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := req.validate(); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.sender.Send(c.Request.Context(), req.SessionID, req.To, req.payload())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "messageId": res.MessageID})
}

type sendBulkRequest struct {
	SessionID string   `json:"sessionId" binding:"required"`
	Receivers []string `json:"receivers" binding:"required"`
	Message   string   `json:"message"`
	MediaURL  string   `json:"mediaUrl"`
	MediaType string   `json:"mediaType"`
	FileName  string   `json:"fileName"`
	Caption   string   `json:"caption"`
	DelayMS   int      `json:"delayMs"`
}

func (s *Server) sendBulk(c *gin.Context) {
	var req sendBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := limits.ValidateSessionID(req.SessionID); err != nil {
		badRequest(c, fmt.Errorf("sessionId: %w", err))
		return
	}
	if len(req.Receivers) == 0 {
		badRequest(c, fmt.Errorf("receivers: %w", limits.ErrFieldEmpty))
		return
	}
	for _, r := range req.Receivers {
		if err := limits.ValidatePhone(r); err != nil {
			badRequest(c, fmt.Errorf("receiver %q: %w", r, err))
			return
		}
	}
	if err := limits.ValidateBulkDelayMS(req.DelayMS); err != nil {
		badRequest(c, fmt.Errorf("delayMs: %w", err))
		return
	}
	payload := delivery.Payload{
		Text:      req.Message,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		FileName:  req.FileName,
		Caption:   req.Caption,
	}
	delay := time.Duration(req.DelayMS) * time.Millisecond
	results, err := s.sender.SendBulk(c.Request.Context(), req.SessionID, req.Receivers, payload, delay)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "bulk_completed", "results": results})
}

type checkNumberRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	Number    string `json:"number" binding:"required"`
}

func (s *Server) checkNumber(c *gin.Context) {
	var req checkNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := limits.ValidatePhone(req.Number); err != nil {
		badRequest(c, fmt.Errorf("number: %w", err))
		return
	}
	res, err := s.sender.CheckNumber(c.Request.Context(), req.SessionID, req.Number)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type sendContactRequest struct {
	SessionID     string `json:"sessionId" binding:"required"`
	To            string `json:"to" binding:"required"`
	ContactName   string `json:"contactName" binding:"required"`
	ContactNumber string `json:"contactNumber" binding:"required"`
	Organization  string `json:"organization"`
}

func (s *Server) sendContact(c *gin.Context) {
	var req sendContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := limits.ValidateContactName(req.ContactName); err != nil {
		badRequest(c, fmt.Errorf("contactName: %w", err))
		return
	}
	if err := limits.ValidatePhone(req.ContactNumber); err != nil {
		badRequest(c, fmt.Errorf("contactNumber: %w", err))
		return
	}
	card := delivery.ContactCard{
		Name:         req.ContactName,
		Number:       req.ContactNumber,
		Organization: req.Organization,
	}
	res, err := s.sender.SendContact(c.Request.Context(), req.SessionID, req.To, card)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "messageId": res.MessageID})
}

type setTypingRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
	To        string `json:"to" binding:"required"`
	State     string `json:"state"`
}

func (s *Server) setTyping(c *gin.Context) {
	var req setTypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sender.SetTyping(c.Request.Context(), req.SessionID, req.To, req.State); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
