package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type borrowRequest struct {
	BookGUID   string `json:"book_guid" binding:"required"`
	BorrowDays int    `json:"borrow_days"`
}

func (h *Handler) borrowBook(c *gin.Context) {
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.lending.Borrow(c.Request.Context(), principal, req.BookGUID, req.BorrowDays)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, borrowToResponse(*record))
}

func (h *Handler) returnBook(c *gin.Context) {
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	record, err := h.lending.Return(c.Request.Context(), principal, c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, borrowToResponse(*record))
}

func (h *Handler) getBorrow(c *gin.Context) {
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	record, err := h.lending.GetBorrow(c.Request.Context(), principal, c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	ok(c, borrowToResponse(*record))
}

func (h *Handler) listBorrows(c *gin.Context) {
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	page, err := h.lending.History(c.Request.Context(), principal, pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	setPaginationHeaders(c, page)
	ok(c, borrowsToResponse(page.Items))
}

func (h *Handler) myBorrowHistory(c *gin.Context) {
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	page, err := h.lending.MyHistory(c.Request.Context(), principal, pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	setPaginationHeaders(c, page)
	ok(c, borrowsToResponse(page.Items))
}

func (h *Handler) overdueBorrows(c *gin.Context) {
	principal, ok2 := principalFrom(c)
	if !ok2 {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "missing principal"})
		return
	}

	page, err := h.lending.Overdue(c.Request.Context(), principal, pageFromQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}
	setPaginationHeaders(c, page)
	ok(c, borrowsToResponse(page.Items))
}
