package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/talkie/core"
	"github.com/layer-3/talkie/service"
)

// VerifyResponse is the outcome of a wallet verification
type VerifyResponse struct {
	Success       bool    `json:"success"`
	TokenID       *int64  `json:"token_id"`
	WalletAddress string  `json:"wallet_address"`
	AccessToken   *string `json:"access_token"`
	Message       string  `json:"message"`
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// Challenge returns a message for the wallet to sign
func (h *AuthHandlers) Challenge(c *gin.Context) {
	message, err := h.authService.Challenge()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// VerifyNFT checks the wallet signature and NFT ownership and grants access.
// Authentication failures are reported in the body with success=false.
func (h *AuthHandlers) VerifyNFT(c *gin.Context) {
	var req struct {
		WalletAddress string `json:"wallet_address" binding:"required"`
		Signature     string `json:"signature" binding:"required"`
		Message       string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	cred, err := h.authService.Issue(c.Request.Context(), req.WalletAddress, req.Message, req.Signature)
	if err != nil {
		statusCode := http.StatusOK
		var message string
		switch {
		case errors.Is(err, core.ErrInvalidSignature):
			message = "Invalid signature"
		case errors.Is(err, core.ErrNotAuthorized):
			message = "No Frosty Ape Yeti NFT found in this wallet"
		case errors.Is(err, core.ErrChallengeReused):
			message = "Challenge already used"
		case errors.Is(err, core.ErrOracleUnavailable):
			statusCode = http.StatusServiceUnavailable
			message = "Ownership service unavailable"
		default:
			statusCode = http.StatusInternalServerError
			message = "Authentication failed"
		}
		c.JSON(statusCode, VerifyResponse{WalletAddress: req.WalletAddress, Message: message})
		return
	}

	tokenID := cred.Claim.TokenID
	c.JSON(http.StatusOK, VerifyResponse{
		Success:       true,
		TokenID:       &tokenID,
		WalletAddress: req.WalletAddress,
		AccessToken:   &cred.Token,
		Message:       fmt.Sprintf("Access granted! Welcome, Frosty Ape Yeti #%d", tokenID),
	})
}

// AudioHandlers serves audio submission and the per-holder read models
type AudioHandlers struct {
	audioService *service.AudioService
}

func NewAudioHandlers(audioService *service.AudioService) *AudioHandlers {
	return &AudioHandlers{audioService: audioService}
}

// Broadcast accepts audio_data and duration as JSON, form or query values
func (h *AudioHandlers) Broadcast(c *gin.Context) {
	var req struct {
		AudioData string   `json:"audio_data" form:"audio_data" binding:"required"`
		Duration  *float64 `json:"duration" form:"duration" binding:"required"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	msg, err := h.audioService.Submit(c.Request.Context(), claimFrom(c), req.AudioData, *req.Duration)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrPayloadTooLarge):
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(
				"Audio message too long (max %d seconds)", int(h.audioService.MaxDuration().Seconds()))})
		case errors.Is(err, core.ErrInvalidAudio):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audio message"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to broadcast audio message"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message_id": msg.ID})
}

// Latest returns the newest audio message in the community
func (h *AudioHandlers) Latest(c *gin.Context) {
	msg, err := h.audioService.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"message": "No messages available"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load latest message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// Profile returns the caller's profile
func (h *AudioHandlers) Profile(c *gin.Context) {
	profile, err := h.audioService.Profile(c.Request.Context(), claimFrom(c).TokenID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load profile"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Recordings lists every clip recorded by an NFT
func (h *AudioHandlers) Recordings(c *gin.Context) {
	tokenID, err := strconv.ParseInt(c.Param("token_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid token id"})
		return
	}

	recordings, err := h.audioService.Recordings(c.Request.Context(), tokenID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"recordings": []core.AudioMessage{}})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recordings"})
		return
	}
	if recordings == nil {
		recordings = []core.AudioMessage{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"token_id":         tokenID,
		"total_recordings": len(recordings),
		"recordings":       recordings,
	})
}

// Stats returns community statistics
func (h *AudioHandlers) Stats(c *gin.Context) {
	stats, err := h.audioService.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AudioHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.audioService.Health(c.Request.Context()))
}
