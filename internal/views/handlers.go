package views

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the precomputed dashboard documents and the manual
// rebuild escape hatch.
type Handler struct {
	engine *Engine
	store  ViewStore
}

func NewHandler(engine *Engine, store ViewStore) *Handler {
	return &Handler{engine: engine, store: store}
}

// GET /views/client/me
func (h *Handler) GetClientView(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	v, err := h.store.GetClientView(c.Request().Context(), userID)
	if errors.Is(err, ErrActorNotFound) {
		// No document yet: build one on the spot rather than 404ing a
		// freshly registered client.
		v, err = h.engine.RebuildClient(c.Request().Context(), userID, ReasonManual)
	}
	if err != nil {
		if errors.Is(err, ErrActorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
		}
		log.Printf("[views] get client view %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load view"})
	}
	return c.JSON(http.StatusOK, v)
}

// GET /views/supplier/me
func (h *Handler) GetSupplierView(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	supplierID, err := h.engine.src.SupplierIDForUser(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, ErrActorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "supplier profile not found"})
		}
		log.Printf("[views] resolve supplier for user %s: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load view"})
	}

	v, err := h.store.GetSupplierView(c.Request().Context(), supplierID)
	if errors.Is(err, ErrActorNotFound) {
		v, err = h.engine.RebuildSupplier(c.Request().Context(), supplierID, ReasonManual)
	}
	if err != nil {
		if errors.Is(err, ErrActorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "supplier not found"})
		}
		log.Printf("[views] get supplier view %s: %v", supplierID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load view"})
	}
	return c.JSON(http.StatusOK, v)
}

// POST /views/:kind/:id/rebuild  (admin only; wired behind the admin guard)
func (h *Handler) Rebuild(c echo.Context) error {
	actorID := c.Param("id")
	if actorID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "actor id is required"})
	}

	var err error
	switch c.Param("kind") {
	case "client":
		_, err = h.engine.RebuildClient(c.Request().Context(), actorID, ReasonManual)
	case "supplier":
		_, err = h.engine.RebuildSupplier(c.Request().Context(), actorID, ReasonManual)
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be client or supplier"})
	}
	if err != nil {
		if errors.Is(err, ErrActorNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "actor not found"})
		}
		log.Printf("[views] manual rebuild %s/%s: %v", c.Param("kind"), actorID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rebuild failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"rebuilt": true, "actor_id": actorID})
}
