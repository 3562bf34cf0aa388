package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/millsmillsymills/controlplane/internal/database"
	"github.com/millsmillsymills/controlplane/internal/models"
	"github.com/millsmillsymills/controlplane/internal/platform"
)

// NotificationHandler handles notification channel operations
type NotificationHandler struct {
	repo *database.NotificationRepository
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler() *NotificationHandler {
	return &NotificationHandler{
		repo: database.NewNotificationRepository(),
	}
}

// GetAll returns all notification channels
func (h *NotificationHandler) GetAll(c *fiber.Ctx) error {
	channels, err := h.repo.GetAll()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "FETCH_ERROR",
				"message": "Failed to fetch notification channels",
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    channels,
	})
}

// Create creates a new notification channel
func (h *NotificationHandler) Create(c *fiber.Ctx) error {
	var req models.NotificationChannelCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body",
			},
		})
	}

	// Validate type
	if req.Type != "telegram" && req.Type != "discord" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_TYPE",
				"message": "Type must be 'telegram' or 'discord'",
			},
		})
	}

	// Marshal config to JSON
	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_CONFIG",
				"message": "Invalid configuration",
			},
		})
	}

	channel := &models.NotificationChannel{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		Config:    string(configJSON),
		IsEnabled: true,
		CreatedAt: time.Now(),
	}

	if err := h.repo.Create(channel); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "CREATE_ERROR",
				"message": "Failed to create notification channel",
			},
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success": true,
		"data":    channel,
	})
}

// Test sends a test notification
func (h *NotificationHandler) Test(c *fiber.Ctx) error {
	id := c.Params("id")

	channel, err := h.repo.GetByID(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "FETCH_ERROR",
				"message": "Failed to fetch channel",
			},
		})
	}

	if channel == nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "NOT_FOUND",
				"message": "Channel not found",
			},
		})
	}

	// Create test event
	event := platform.Event{
		Source:   "notifications",
		Severity: platform.SeverityInfo,
		Title:    "Test Notification",
		Message:  "This is a test notification from controlplane",
		Time:     time.Now(),
	}

	provider, err := platform.ProviderFromChannel(*channel)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_CONFIG",
				"message": err.Error(),
			},
		})
	}

	if err := provider.Send(event); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "SEND_ERROR",
				"message": err.Error(),
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Test notification sent successfully",
	})
}

// Update updates a notification channel
func (h *NotificationHandler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	channel, err := h.repo.GetByID(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "FETCH_ERROR",
				"message": "Failed to fetch channel",
			},
		})
	}

	if channel == nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "NOT_FOUND",
				"message": "Channel not found",
			},
		})
	}

	var req models.NotificationChannelCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body",
			},
		})
	}

	// Validate type
	if req.Type != "telegram" && req.Type != "discord" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_TYPE",
				"message": "Type must be 'telegram' or 'discord'",
			},
		})
	}

	// Marshal config to JSON
	configJSON, err := json.Marshal(req.Config)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "INVALID_CONFIG",
				"message": "Invalid configuration",
			},
		})
	}

	channel.Name = req.Name
	channel.Type = req.Type
	channel.Config = string(configJSON)

	if err := h.repo.Update(channel); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "UPDATE_ERROR",
				"message": "Failed to update notification channel",
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    channel,
	})
}

// Toggle toggles the enabled state of a notification channel
func (h *NotificationHandler) Toggle(c *fiber.Ctx) error {
	id := c.Params("id")

	channel, err := h.repo.GetByID(id)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "FETCH_ERROR",
				"message": "Failed to fetch channel",
			},
		})
	}

	if channel == nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "NOT_FOUND",
				"message": "Channel not found",
			},
		})
	}

	newState := !channel.IsEnabled
	if err := h.repo.SetEnabled(id, newState); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "TOGGLE_ERROR",
				"message": "Failed to toggle notification channel",
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"id":        id,
			"isEnabled": newState,
		},
	})
}

// Delete deletes a notification channel
func (h *NotificationHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.repo.Delete(id); err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    "DELETE_ERROR",
				"message": "Failed to delete notification channel",
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Notification channel deleted successfully",
	})
}
