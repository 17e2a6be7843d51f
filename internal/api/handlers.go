package api

import (
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/birbparty/birb-baas/internal/storage"
	"github.com/birbparty/birb-baas/internal/telemetry"
	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()

// Handler holds all dependencies for API handlers
type Handler struct {
	cfg     *Config
	store   *Store
	blobs   storage.BlobStore
	metrics *telemetry.Metrics
}

// NewHandler creates a new handler instance
func NewHandler(cfg *Config, store *Store, blobs storage.BlobStore, metrics *telemetry.Metrics) *Handler {
	return &Handler{
		cfg:     cfg,
		store:   store,
		blobs:   blobs,
		metrics: metrics,
	}
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	checks := map[string]string{"store": "healthy"}

	if _, err := h.blobs.List(c.UserContext(), "health/"); err != nil {
		checks["blobs"] = "unhealthy: " + err.Error()
	} else {
		checks["blobs"] = "healthy"
	}

	status := "healthy"
	for _, check := range checks {
		if check != "healthy" {
			status = "unhealthy"
			break
		}
	}

	response := &HealthResponse{
		Status:  status,
		Service: "birb-baas-mock",
		Version: "1.0.0",
		Uptime:  time.Since(startTime).String(),
		Checks:  checks,
		Metadata: map[string]string{
			"blobBackend": h.cfg.BlobBackend,
		},
	}

	statusCode := fiber.StatusOK
	if status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

// Login handles POST /v1/:apiKey/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.GrantType != "password" {
		return fiber.NewError(fiber.StatusBadRequest, "unsupported grant_type "+strconv.Quote(req.GrantType))
	}

	token, err := h.store.Login(c.Params("apiKey"), req.UserName, req.Password, h.cfg.TokenTTL)
	if err != nil {
		return err
	}
	h.metrics.UpdateActiveSessions(h.store.SessionCount())

	return c.JSON(token)
}

// CurrentUser handles GET /v1/:apiKey/login
func (h *Handler) CurrentUser(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}
	user, err := h.store.Authenticate(c.Params("apiKey"), token)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	return c.JSON(user)
}

// Logout handles DELETE /v1/:apiKey/login. The token named in the body is
// revoked, falling back to the Authorization header.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if req.Token == "" {
		req.Token = bearerToken(c.Get(fiber.HeaderAuthorization))
	}

	if !h.store.Logout(c.Params("apiKey"), req.Token) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	h.metrics.UpdateActiveSessions(h.store.SessionCount())

	return c.SendStatus(fiber.StatusNoContent)
}

// Register handles POST /v1/:apiKey/register
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	user, code, err := h.store.Register(c.Params("apiKey"), req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(&RegisterResponse{
		UserResponse:   *user,
		ActivationCode: code,
	})
}

// Activate handles PUT /v1/:apiKey/register/activate/:code
func (h *Handler) Activate(c *fiber.Ctx) error {
	code, err := url.PathUnescape(c.Params("code"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid activation code")
	}
	if err := h.store.Activate(c.Params("apiKey"), code); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"activated": true})
}

// RecoverPassword handles POST /v1/:apiKey/recover-password
func (h *Handler) RecoverPassword(c *fiber.Ctx) error {
	var req RecoveryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.UserName == "" && req.Email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "userName or email is required")
	}

	token, err := h.store.RequestRecovery(c.Params("apiKey"), req.UserName, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(&RecoveryResponse{RecoveryToken: token})
}

// ResetPassword handles PUT /v1/:apiKey/recover-password
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := h.store.ResetPassword(c.Params("apiKey"), req.RecoveryToken, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// UploadStream handles POST /v1/:apiKey/<route>/*
func (h *Handler) UploadStream(route string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := streamPath(c)
		if err != nil {
			return err
		}

		var content StreamContent
		if err := c.BodyParser(&content); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if content.ContentType == "" {
			content.ContentType = "application/octet-stream"
		}

		key := blobKey(c.Params("apiKey"), route, path)
		if err := h.blobs.Put(c.UserContext(), key, content.ContentType, content.Content); err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(&StreamInfo{
			Path:        path,
			ContentType: content.ContentType,
			Size:        len(content.Content),
		})
	}
}

// DownloadStream handles GET /v1/:apiKey/<route>/*
func (h *Handler) DownloadStream(route string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := streamPath(c)
		if err != nil {
			return err
		}

		blob, err := h.blobs.Get(c.UserContext(), blobKey(c.Params("apiKey"), route, path))
		if err != nil {
			if errors.Is(err, storage.ErrBlobNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "stream not found: "+path)
			}
			return err
		}

		return c.JSON(&StreamContent{
			Path:        path,
			ContentType: blob.ContentType,
			Content:     blob.Data,
		})
	}
}

// DeleteStream handles DELETE /v1/:apiKey/<route>/*
func (h *Handler) DeleteStream(route string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path, err := streamPath(c)
		if err != nil {
			return err
		}
		if err := h.blobs.Delete(c.UserContext(), blobKey(c.Params("apiKey"), route, path)); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func streamPath(c *fiber.Ctx) (string, error) {
	path, err := url.PathUnescape(c.Params("*"))
	if err != nil || path == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "Invalid stream path")
	}
	return path, nil
}

func blobKey(apiKey, route, path string) string {
	return apiKey + "/" + route + "/" + path
}

// Resource handles every other module route under /v1/:apiKey. The path is
// interpreted against the store as a collection, an item, an item action
// or a singleton document.
func (h *Handler) Resource(c *fiber.Ctx) error {
	apiKey := c.Params("apiKey")
	segs, err := splitPath(c.Params("*"))
	if err != nil {
		return err
	}
	full := strings.Join(segs, "/")
	n := len(segs)

	parent, last := "", ""
	if n >= 2 {
		parent, last = strings.Join(segs[:n-1], "/"), segs[n-1]
	}
	// owner/ownerID/action
	owner, ownerID := "", ""
	if n >= 3 {
		owner, ownerID = strings.Join(segs[:n-2], "/"), segs[n-2]
	}

	switch c.Method() {
	case fiber.MethodGet:
		if h.store.HasCollection(apiKey, full) {
			page, err := h.store.List(apiKey, full, listQuery(c))
			if err != nil {
				return err
			}
			return c.JSON(page)
		}
		if parent != "" {
			if item, err := h.store.GetItem(apiKey, parent, last); err == nil {
				return c.JSON(item)
			}
		}
		doc, err := h.store.GetDocument(apiKey, full)
		if err == nil {
			return c.JSON(doc)
		}
		if strings.HasSuffix(full, "settings") {
			return c.JSON(fiber.Map{})
		}
		if parent != "" && h.store.HasCollection(apiKey, parent) {
			return fiber.NewError(fiber.StatusNotFound, "item not found: "+full)
		}
		// a collection nothing was written to lists as empty
		q := listQuery(c)
		return c.JSON(&PageResponse{Items: []Item{}, Page: q.Page, RecordsPerPage: q.RecordsPerPage, SearchQuery: q.SearchQuery})

	case fiber.MethodPost:
		body, err := parseItem(c)
		if err != nil {
			return err
		}
		item, err := h.store.Create(apiKey, full, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(item)

	case fiber.MethodPut:
		body, err := parseItem(c)
		if err != nil {
			return err
		}
		if parent != "" {
			if _, err := h.store.GetItem(apiKey, parent, last); err == nil {
				item, err := h.store.Update(apiKey, parent, last, body)
				if err != nil {
					return err
				}
				return c.JSON(item)
			}
		}
		if owner != "" {
			if _, err := h.store.GetItem(apiKey, owner, ownerID); err == nil {
				return h.action(c, apiKey, owner, ownerID, last, body)
			}
		}
		if n >= 3 && h.store.HasCollection(apiKey, owner) {
			return fiber.NewError(fiber.StatusNotFound, "item not found: "+owner+"/"+ownerID)
		}
		h.store.PutDocument(apiKey, full, body)
		return c.JSON(body)

	case fiber.MethodDelete:
		if parent != "" {
			if err := h.store.DeleteItem(apiKey, parent, last); err == nil {
				return c.SendStatus(fiber.StatusNoContent)
			}
			if last == "purge" && h.store.HasCollection(apiKey, parent) {
				if err := h.store.ClearCollection(apiKey, parent); err != nil {
					return err
				}
				return c.SendStatus(fiber.StatusNoContent)
			}
		}
		if h.store.HasCollection(apiKey, full) {
			if err := h.store.ClearCollection(apiKey, full); err != nil {
				return err
			}
			return c.SendStatus(fiber.StatusNoContent)
		}
		if owner != "" {
			if _, err := h.store.GetItem(apiKey, owner, ownerID); err == nil {
				return h.action(c, apiKey, owner, ownerID, last, nil)
			}
		}
		return fiber.NewError(fiber.StatusNotFound, "resource not found: "+full)
	}

	return fiber.NewError(fiber.StatusMethodNotAllowed, "method not allowed")
}

func (h *Handler) action(c *fiber.Ctx, apiKey, path, id, action string, body Item) error {
	if path == usersCollection && action == "change-password" {
		password, _ := body["newPassword"].(string)
		if err := h.store.ChangePassword(apiKey, id, password); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}

	item, err := h.store.Apply(apiKey, path, id, action, body)
	if err != nil {
		return err
	}
	return c.JSON(item)
}

func splitPath(raw string) ([]string, error) {
	raw = strings.Trim(raw, "/")
	if raw == "" {
		return nil, fiber.NewError(fiber.StatusNotFound, "Endpoint not found")
	}
	segs := strings.Split(raw, "/")
	for i, s := range segs {
		v, err := url.PathUnescape(s)
		if err != nil || v == "" {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid path segment")
		}
		segs[i] = v
	}
	return segs, nil
}

func parseItem(c *fiber.Ctx) (Item, error) {
	body := Item{}
	if len(c.Body()) == 0 {
		return body, nil
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return body, nil
}

func listQuery(c *fiber.Ctx) ListQuery {
	q := ListQuery{
		SearchQuery:    c.Query("searchQuery"),
		Page:           c.QueryInt("page", 1),
		RecordsPerPage: c.QueryInt("rpp", 10),
		Sort:           c.Query("sort"),
	}
	if fields := c.Query("fields"); fields != "" {
		q.Fields = strings.Split(fields, ",")
	}
	return q
}
