// Package devapi is an in-memory implementation of the nightpass HTTP API for local
// development and for exercising the client managers end to end. Verification codes
// are logged instead of being sent by SMS, and every account accepts the same code.
package devapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	fieldPhoto  = "photo"
	fieldIDCard = "id_card"

	maxUploadBytes = 10 << 20

	ctxUserID = "user_id"
	ctxRole   = "role"
)

// Options configures a Handler. Zero values use development defaults.
type Options struct {
	OTP      string
	Secret   string
	TokenTTL time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Handler serves the API over an in-memory Store.
type Handler struct {
	Store *Store

	otp    string
	tokens *tokenService
	log    *zap.Logger
}

func New(opts Options) *Handler {
	if opts.OTP == "" {
		opts.OTP = "123456"
	}
	if opts.Secret == "" {
		opts.Secret = "change-me-devapi-secret"
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{
		Store:  NewStore(opts.Now),
		otp:    opts.OTP,
		tokens: newTokenService(opts.Secret, opts.TokenTTL, opts.Now),
		log:    opts.Logger,
	}
}

// Router builds the gin engine with every route mounted under /api.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/uploads/:name", h.ServeUpload)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/confirm_registration", h.ConfirmRegistration)
		auth.POST("/login", h.Login)
		auth.POST("/confirm_login", h.ConfirmLogin)
		auth.DELETE("/logout", h.Logout)

		user := api.Group("", h.requireUser())
		user.GET("/profile", h.GetProfile)
		user.PATCH("/profile", h.UpdateProfile)
		user.POST("/profile/upload_photo", h.uploadImage(fieldPhoto))
		user.POST("/profile/upload_id_card", h.uploadImage(fieldIDCard))

		user.GET("/venues", h.ListVenues)
		user.GET("/venues/:id", h.GetVenue)
		user.GET("/venues/:id/events", h.ListEvents)

		user.GET("/approvals", h.ListApprovals)
		user.POST("/approvals", h.CreateApproval)
		user.GET("/approvals/:id", h.GetApproval)
		user.GET("/approvals/:id/qr_code", h.GetQRCode)

		admin := user.Group("/admin", h.requireVenueAdmin())
		admin.GET("/venues", h.AdminListVenues)
		admin.GET("/venues/:venue_id", h.AdminGetVenue)
		admin.GET("/venues/:venue_id/approvals", h.AdminListApprovals)
		admin.GET("/venues/:venue_id/approvals/pending", h.AdminListPendingApprovals)
		admin.GET("/venues/:venue_id/approvals/:id", h.AdminGetApproval)
		admin.POST("/venues/:venue_id/approvals/:id/approve", h.AdminApprove)
		admin.POST("/venues/:venue_id/approvals/:id/reject", h.AdminReject)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})
	return r
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
			zap.Int("size", c.Writer.Size()),
		)
	}
}

func (h *Handler) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}
		claims, err := h.tokens.validate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		u, ok := h.Store.user(claims.UserID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unknown account"})
			return
		}
		c.Set(ctxUserID, u.ID)
		// the stored role wins over the token so promotions apply without a new login
		c.Set(ctxRole, u.Role)
		c.Next()
	}
}

func (h *Handler) requireVenueAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != "venue_admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Venue admin access required"})
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// fail maps store errors onto status codes and the {"error": ...} body.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNotFound), errors.Is(err, errUnknownPhone):
		status = http.StatusNotFound
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errPhoneTaken), errors.Is(err, errNoPending), errors.Is(err, errNotPending),
		errors.Is(err, errDuplicate), errors.Is(err, errEventRequired), errors.Is(err, errEventNotGlobal):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": sentence(err.Error())})
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
