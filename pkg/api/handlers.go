package api

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/aretw0/continuum/pkg/core"
	"github.com/aretw0/continuum/pkg/governance"
)

type handlers struct {
	engine  Engine
	logger  *slog.Logger
	version string
}

// ModeResponse is the body of GET /workspaces/:id/mode.
type ModeResponse struct {
	Workspace string          `json:"workspace"`
	Mode      governance.Mode `json:"mode"`
	Reasons   []string        `json:"reasons"`
}

// ResolveResponse is the body of a successful GET /documents/resolve.
type ResolveResponse struct {
	Document   core.CanonicalDocument `json:"document"`
	Tier       string                 `json:"tier"`
	Candidates []string               `json:"candidates,omitempty"`
}

// NotFoundResponse is the body of a failed GET /documents/resolve.
type NotFoundResponse struct {
	Error         string   `json:"error"`
	Key           string   `json:"key"`
	AvailableKeys []string `json:"availableKeys"`
	Cause         string   `json:"cause,omitempty"`
}

type governedRequest struct {
	Governed *bool `json:"governed"`
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok", "version": h.version})
}

func (h *handlers) workspaceID(c *fiber.Ctx) (string, error) {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || id == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}
	return id, nil
}

func (h *handlers) workspace(c *fiber.Ctx) error {
	id, err := h.workspaceID(c)
	if err != nil {
		return err
	}
	ws := governance.Workspace{ID: id, Name: c.Query("name")}
	return c.JSON(h.engine.Workspace(c.UserContext(), ws))
}

func (h *handlers) mode(c *fiber.Ctx) error {
	id, err := h.workspaceID(c)
	if err != nil {
		return err
	}
	res := h.engine.ResolveMode(c.UserContext(), id)
	return c.JSON(ModeResponse{Workspace: id, Mode: res.Mode, Reasons: res.Reasons})
}

func (h *handlers) checkAction(c *fiber.Ctx) error {
	id, err := h.workspaceID(c)
	if err != nil {
		return err
	}
	var action governance.Action
	if err := c.BodyParser(&action); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid action: "+err.Error())
	}
	if action.Name == "" || action.Kind == "" {
		return fiber.NewError(fiber.StatusBadRequest, "action name and kind are required")
	}
	return c.JSON(h.engine.Authorize(c.UserContext(), id, action))
}

func (h *handlers) resolve(c *fiber.Ctx) error {
	key := c.Query("key")
	if key == "" {
		return fiber.NewError(fiber.StatusBadRequest, "key query parameter is required")
	}

	m, err := h.engine.FindMatch(c.UserContext(), key)
	if err != nil {
		var nf *core.NotFoundError
		if !errors.As(err, &nf) {
			return err
		}
		resp := NotFoundResponse{Error: "NotFound", Key: key, AvailableKeys: nf.AvailableKeys}
		if resp.AvailableKeys == nil {
			resp.AvailableKeys = []string{}
		}
		status := fiber.StatusNotFound
		if nf.Cause != nil {
			// The store could not be listed; the key may well exist.
			resp.Cause = nf.Cause.Error()
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(resp)
	}

	resp := ResolveResponse{Document: m.Document, Tier: m.Tier.String()}
	if m.Ambiguous() {
		resp.Candidates = m.Candidates
	}
	return c.JSON(resp)
}

func (h *handlers) setGoverned(c *fiber.Ctx) error {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil || id == "" {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document id")
	}
	var req governedRequest
	if err := c.BodyParser(&req); err != nil || req.Governed == nil {
		return fiber.NewError(fiber.StatusBadRequest, `body must be {"governed": true|false}`)
	}

	err = h.engine.SetGoverned(c.UserContext(), id, *req.Governed)
	switch {
	case err == nil:
		return c.SendStatus(fiber.StatusNoContent)
	case errors.Is(err, core.ErrReadOnly):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, core.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrTransient):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return err
	}
}

func (h *handlers) registry(c *fiber.Ctx) error {
	res, err := h.engine.LoadRegistry(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(res)
}

func (h *handlers) invalidateRegistry(c *fiber.Ctx) error {
	h.engine.InvalidateRegistry()
	return c.SendStatus(fiber.StatusNoContent)
}
