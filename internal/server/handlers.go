package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"healthmate/backend/internal/users"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (a *App) signup(c *gin.Context) {
	var req users.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, err := a.users.Signup(c.Request.Context(), req)
	if err != nil {
		a.writeServiceError(c, err, "Failed to create account")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Account created successfully",
		"user_id": user.ID,
	})
}

func (a *App) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := a.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		a.writeServiceError(c, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    user.Profile(),
	})
}

func (a *App) submitHealthData(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := a.health.Submit(c.Request.Context(), authUserID(c), raw)
	if err != nil {
		a.writeServiceError(c, err, "Failed to save health data")
		return
	}

	body := gin.H{
		"success":         true,
		"message":         "Health data updated successfully",
		"risk_level":      result.Tier,
		"recommendations": result.Recommendations,
		"points_earned":   result.PointsEarned,
	}
	if len(result.Warnings) > 0 {
		body["warnings"] = result.Warnings
	}
	c.JSON(http.StatusOK, body)
}

func (a *App) getHealthData(c *gin.Context) {
	record, found, err := a.health.Record(c.Request.Context(), authUserID(c))
	if err != nil {
		a.writeServiceError(c, err, "Failed to load health data")
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, record)
}

func (a *App) getRecommendations(c *gin.Context) {
	set, found, err := a.health.Recommendations(c.Request.Context(), authUserID(c))
	if err != nil {
		a.writeServiceError(c, err, "Failed to load recommendations")
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{
			"recommendations": gin.H{"diet": []string{}, "exercise": []string{}, "lifestyle": []string{}},
			"generated_at":    nil,
		})
		return
	}
	c.JSON(http.StatusOK, set)
}

func (a *App) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	entry, err := a.assistant.Respond(c.Request.Context(), authUserID(c), req.Message)
	if err != nil {
		a.writeServiceError(c, err, "Failed to process message")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  entry.AIResponse,
		"timestamp": entry.Timestamp,
	})
}

func (a *App) chatHistory(c *gin.Context) {
	entries, err := a.assistant.History(c.Request.Context(), authUserID(c))
	if err != nil {
		a.writeServiceError(c, err, "Failed to load chat history")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (a *App) getProfile(c *gin.Context) {
	user, err := a.users.Get(c.Request.Context(), authUserID(c))
	if err != nil {
		a.writeServiceError(c, err, "Failed to load profile")
		return
	}
	c.JSON(http.StatusOK, user.Profile())
}

func (a *App) updateProfile(c *gin.Context) {
	var req users.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, err := a.users.UpdateProfile(c.Request.Context(), authUserID(c), req)
	if err != nil {
		a.writeServiceError(c, err, "Failed to update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"profile": user.Profile(),
	})
}
