package devapi

import (
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nightpass/nightpass/pkg/schema"
)

func (h *Handler) GetProfile(c *gin.Context) {
	u, ok := h.Store.user(currentUserID(c))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown account"})
		return
	}
	c.JSON(http.StatusOK, schema.UserResponse{User: u})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var input struct {
		Profile profilePatch `json:"profile"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := input.Profile
	if (p.FirstName != nil && strings.TrimSpace(*p.FirstName) == "") ||
		(p.LastName != nil && strings.TrimSpace(*p.LastName) == "") {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Name must not be blank"})
		return
	}

	u, err := h.Store.updateProfile(currentUserID(c), p)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.UserResponse{User: u})
}

// uploadImage accepts one image part under field and records its public URL.
func (h *Handler) uploadImage(field string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)

		fh, err := c.FormFile(field)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file field " + field})
			return
		}
		contentType := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "File must be an image"})
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		name := field + "-" + uuid.NewString() + path.Ext(fh.Filename)
		h.Store.putUpload(name, contentType, data)

		url := "/uploads/" + name
		if err := h.Store.attachImage(currentUserID(c), field, url); err != nil {
			fail(c, err)
			return
		}

		msg := "Profile photo uploaded"
		if field == fieldIDCard {
			msg = "ID card uploaded"
		}
		c.JSON(http.StatusOK, schema.MessageResponse{Message: msg})
	}
}

func (h *Handler) ServeUpload(c *gin.Context) {
	u, ok := h.Store.getUpload(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}
	c.Data(http.StatusOK, u.contentType, u.data)
}
