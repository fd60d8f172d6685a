// Package api is the thin HTTP translation of verbs to repository and
// coordinator calls. It holds no business rules beyond error mapping.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/storagehub/storaged/internal/apperr"
	"github.com/storagehub/storaged/internal/document"
	"github.com/storagehub/storaged/internal/repository"
)

// listLimit caps unfiltered list responses.
const listLimit = 50

// Crud wires the generic repository operations for one entity type.
type Crud[T any, PT repository.Pointer[T]] struct {
	repo repository.Repository[T, PT]
}

func NewCrud[T any, PT repository.Pointer[T]](repo repository.Repository[T, PT]) *Crud[T, PT] {
	return &Crud[T, PT]{repo: repo}
}

func (h *Crud[T, PT]) List(c *gin.Context) {
	docs, err := h.repo.Query().Limit(listLimit).All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Crud[T, PT]) Get(c *gin.Context) {
	doc, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Crud[T, PT]) Create(c *gin.Context) {
	doc := PT(new(T))
	if err := c.ShouldBindJSON(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// ids are assigned server-side on insert, never taken from the body
	doc.SetDocumentID(primitive.NilObjectID)
	out, err := h.repo.InsertOne(c.Request.Context(), doc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Crud[T, PT]) Update(c *gin.Context) {
	oid, err := document.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	doc := PT(new(T))
	if err := c.ShouldBindJSON(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc.SetDocumentID(oid)
	out, err := h.repo.ReplaceOne(c.Request.Context(), doc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Crud[T, PT]) Delete(c *gin.Context) {
	doc, err := h.repo.DeleteByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, apperr.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvalidOperation):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
