package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DeliveryStatus represents the outcome of a notification
type DeliveryStatus string

const (
	StatusDelivered DeliveryStatus = "DELIVERED"
	StatusFailed    DeliveryStatus = "FAILED"
)

// NotifyRequest is what the alert dispatcher sends us
type NotifyRequest struct {
	AlertID   string  `json:"alert_id" binding:"required"`
	Severity  string  `json:"severity" binding:"required"`
	LevelG    int64   `json:"level_g"`
	CapacityG int64   `json:"capacity_g"`
	Percent   float64 `json:"percent"`
	Message   string  `json:"message" binding:"required"`
}

// NotifyResponse is returned after the notification is (not) sent out
type NotifyResponse struct {
	AlertID     string         `json:"alert_id"`
	Status      DeliveryStatus `json:"status"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	ErrorCode   string         `json:"error_code,omitempty"`
	ErrorMsg    string         `json:"error_message,omitempty"`
	ChannelID   string         `json:"channel_id"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status       string    `json:"status"`
	ChannelID    string    `json:"channel_id"`
	Timestamp    time.Time `json:"timestamp"`
	DeliveryRate float64   `json:"delivery_rate"`
}

// MockNotifier simulates the SMS/phone channel that pushes tank alerts
// to the plant operator. Useful for local runs and load tests of the
// alert pipeline.
type MockNotifier struct {
	deliveryRate float64
	minDelay     time.Duration
	maxDelay     time.Duration
	channelID    string
	rng          *rand.Rand
}

func NewMockNotifier(deliveryRate float64, minDelay, maxDelay time.Duration) *MockNotifier {
	return &MockNotifier{
		deliveryRate: deliveryRate,
		minDelay:     minDelay,
		maxDelay:     maxDelay,
		channelID:    "MOCK_CHANNEL_" + uuid.New().String()[:8],
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// simulateDelivery simulates pushing one alert out to the operator
func (m *MockNotifier) simulateDelivery(req *NotifyRequest) *NotifyResponse {
	delay := m.randomDelay()

	// Critical alerts skip the line
	if req.Severity == "critical" {
		delay = delay / 2
	}

	time.Sleep(delay)

	response := &NotifyResponse{
		AlertID:     req.AlertID,
		ChannelID:   m.channelID,
		ProcessedAt: time.Now(),
	}

	if m.shouldSucceed() {
		now := time.Now()
		response.Status = StatusDelivered
		response.DeliveredAt = &now

		log.Info().
			Str("alert_id", req.AlertID).
			Str("severity", req.Severity).
			Dur("delay", delay).
			Msg("Alert delivered")
	} else {
		response.Status = StatusFailed
		response.ErrorCode = m.randomErrorCode()
		response.ErrorMsg = m.errorMessage(response.ErrorCode)

		log.Warn().
			Str("alert_id", req.AlertID).
			Str("severity", req.Severity).
			Str("error_code", response.ErrorCode).
			Msg("Alert delivery failed")
	}

	return response
}

func (m *MockNotifier) randomDelay() time.Duration {
	delta := m.maxDelay - m.minDelay
	randomDelta := time.Duration(m.rng.Int63n(int64(delta)))
	return m.minDelay + randomDelta
}

func (m *MockNotifier) shouldSucceed() bool {
	return m.rng.Float64() < m.deliveryRate
}

func (m *MockNotifier) randomErrorCode() string {
	errorCodes := []string{
		"NETWORK_ERROR",
		"TIMEOUT",
		"CHANNEL_REJECTED",
		"RECIPIENT_UNREACHABLE",
	}
	return errorCodes[m.rng.Intn(len(errorCodes))]
}

func (m *MockNotifier) errorMessage(code string) string {
	messages := map[string]string{
		"NETWORK_ERROR":         "Network connectivity issue with channel",
		"TIMEOUT":               "Notification delivery timed out",
		"CHANNEL_REJECTED":      "Channel rejected the notification",
		"RECIPIENT_UNREACHABLE": "The recipient is unreachable",
	}

	if msg, ok := messages[code]; ok {
		return msg
	}
	return "Unknown error occurred"
}

// Handler struct holds the mock notifier and routes
type Handler struct {
	notifier *MockNotifier
}

func NewHandler(notifier *MockNotifier) *Handler {
	return &Handler{notifier: notifier}
}

// Notify handles single alert notification requests
func (h *Handler) Notify(c *gin.Context) {
	var req NotifyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	log.Info().
		Str("alert_id", req.AlertID).
		Str("severity", req.Severity).
		Int64("level_g", req.LevelG).
		Msg("Received notification request")

	response := h.notifier.simulateDelivery(&req)

	statusCode := http.StatusOK
	if response.Status == StatusFailed {
		statusCode = http.StatusAccepted // 202: accepted but failed delivery
	}

	c.JSON(statusCode, response)
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(c *gin.Context) {
	// Simulate 5% downtime
	if h.notifier.rng.Float64() < 0.05 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "Channel temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		ChannelID:    h.notifier.channelID,
		Timestamp:    time.Now(),
		DeliveryRate: h.notifier.deliveryRate,
	})
}

// UpdateConfig allows changing notifier configuration at runtime
func (h *Handler) UpdateConfig(c *gin.Context) {
	var config struct {
		DeliveryRate *float64 `json:"delivery_rate"`
	}

	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if config.DeliveryRate != nil {
		if *config.DeliveryRate >= 0 && *config.DeliveryRate <= 1.0 {
			h.notifier.deliveryRate = *config.DeliveryRate
			log.Info().Float64("rate", *config.DeliveryRate).Msg("Updated delivery rate")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Configuration updated",
		"delivery_rate": h.notifier.deliveryRate,
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Add request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		v1.POST("/notifications", handler.Notify)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	// Root health check
	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Get configuration from environment
	port := getEnv("PORT", "8082")
	deliveryRate := getEnvFloat("DELIVERY_RATE", 1)
	minDelay := getEnvDuration("MIN_DELAY", 100*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 2*time.Second)

	log.Info().
		Str("port", port).
		Float64("delivery_rate", deliveryRate).
		Dur("min_delay", minDelay).
		Dur("max_delay", maxDelay).
		Msg("Starting Mock Notification Gateway")

	notifier := NewMockNotifier(deliveryRate, minDelay, maxDelay)
	handler := NewHandler(notifier)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
