package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
	"library-manager/internal/service"
)

type bookRequest struct {
	Title           string `json:"title" binding:"required"`
	Author          string `json:"author" binding:"required"`
	ISBN            string `json:"isbn" binding:"required"`
	Genre           string `json:"genre"`
	PublicationDate string `json:"publication_date"`
	Description     string `json:"description"`
}

func (r bookRequest) toInput() (service.BookInput, error) {
	input := service.BookInput{
		Title:       r.Title,
		Author:      r.Author,
		ISBN:        r.ISBN,
		Genre:       r.Genre,
		Description: r.Description,
	}
	if r.PublicationDate != "" {
		t, err := time.Parse(time.DateOnly, r.PublicationDate)
		if err != nil {
			return service.BookInput{}, err
		}
		input.PublicationDate = &t
	}
	return input, nil
}

func (h *Handler) createBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.books.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, bookToResponse(*book))
}

func (h *Handler) getBook(c *gin.Context) {
	book, err := h.books.GetByGUID(c.Request.Context(), c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, bookToResponse(*book))
}

func (h *Handler) bookAvailability(c *gin.Context) {
	available, err := h.books.IsAvailable(c.Request.Context(), c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"available": available})
}

func (h *Handler) updateBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		badRequest(c, err)
		return
	}

	book, err := h.books.Update(c.Request.Context(), c.Param("guid"), input)
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, bookToResponse(*book))
}

func (h *Handler) deleteBook(c *gin.Context) {
	if err := h.books.Delete(c.Request.Context(), c.Param("guid")); err != nil {
		writeError(c, err)
		return
	}
	ok(c, gin.H{"deleted": c.Param("guid")})
}

func (h *Handler) activateBook(c *gin.Context) {
	book, err := h.books.Activate(c.Request.Context(), c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, bookToResponse(*book))
}

func (h *Handler) searchBooks(c *gin.Context) {
	filter := repository.BookFilter{
		Title:  c.Query("title"),
		Author: c.Query("author"),
		ISBN:   c.Query("isbn"),
		Genre:  c.Query("genre"),
	}
	if v := c.Query("available"); v != "" {
		available := v == "true"
		filter.Available = &available
	}
	if v := c.Query("status"); v != "" {
		status := domain.EntityStatus(v)
		filter.Status = &status
	} else {
		active := domain.EntityStatusActive
		filter.Status = &active
	}

	page, err := h.books.Search(c.Request.Context(), filter, pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := make([]BookResponse, len(page.Items))
	for i := range page.Items {
		resp[i] = bookToResponse(page.Items[i])
	}
	setPaginationHeaders(c, page)
	ok(c, resp)
}
