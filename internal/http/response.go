package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"library-manager/internal/domain"
	"library-manager/internal/repository"
)

const paginationExposedHeaders = "X-Total-Count, X-Total-Pages, X-Current-Page, X-Page-Size, X-Has-Next, X-Has-Previous"

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
}

// writeError maps typed domain failures to stable statuses. Transient
// failures that escaped the service's own retry budget are reported as
// conflicts the client may retry.
func writeError(c *gin.Context, err error) {
	var derr *domain.Error
	if errors.As(err, &derr) {
		status := http.StatusInternalServerError
		switch derr.Kind {
		case domain.KindNotFound:
			status = http.StatusNotFound
		case domain.KindConflict, domain.KindTransient:
			status = http.StatusConflict
		case domain.KindForbidden:
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"success": false, "error": derr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
}

// pageFromQuery reads zero-based page and size query parameters.
func pageFromQuery(c *gin.Context) repository.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return repository.PageRequest{Page: page, Size: size}.Normalize()
}

// setPaginationHeaders exposes paging metadata the way list endpoints have
// always reported it: on headers, with the envelope carrying data only.
func setPaginationHeaders[T any](c *gin.Context, page repository.Page[T]) {
	c.Header("X-Total-Count", strconv.FormatInt(page.TotalCount, 10))
	c.Header("X-Total-Pages", strconv.Itoa(page.TotalPages()))
	c.Header("X-Current-Page", strconv.Itoa(page.Page))
	c.Header("X-Page-Size", strconv.Itoa(page.Size))
	c.Header("X-Has-Next", strconv.FormatBool(page.HasNext()))
	c.Header("X-Has-Previous", strconv.FormatBool(page.HasPrevious()))
}

type BookResponse struct {
	GUID            string  `json:"guid"`
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	ISBN            string  `json:"isbn"`
	Genre           string  `json:"genre,omitempty"`
	PublicationDate *string `json:"publication_date,omitempty"`
	Description     string  `json:"description,omitempty"`
	Available       bool    `json:"available"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

func bookToResponse(book domain.Book) BookResponse {
	resp := BookResponse{
		GUID:        book.GUID,
		Title:       book.Title,
		Author:      book.Author,
		ISBN:        book.ISBN,
		Genre:       book.Genre,
		Description: book.Description,
		Available:   book.Available,
		Status:      string(book.Status),
		CreatedAt:   book.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   book.UpdatedAt.Format(time.RFC3339),
	}
	if book.PublicationDate != nil {
		v := book.PublicationDate.Format(time.DateOnly)
		resp.PublicationDate = &v
	}
	return resp
}

type UserResponse struct {
	GUID      string `json:"guid"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		GUID:      user.GUID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      string(user.Role),
		Status:    string(user.Status),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

type BorrowResponse struct {
	GUID       string  `json:"guid"`
	BookGUID   string  `json:"book_guid"`
	UserGUID   string  `json:"user_guid"`
	BorrowDate string  `json:"borrow_date"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date,omitempty"`
	Status     string  `json:"status"`
	Overdue    bool    `json:"overdue"`
}

func borrowToResponse(record domain.BorrowRecord) BorrowResponse {
	resp := BorrowResponse{
		GUID:       record.GUID,
		BookGUID:   record.BookGUID,
		UserGUID:   record.UserGUID,
		BorrowDate: record.BorrowDate.Format(time.DateOnly),
		DueDate:    record.DueDate.Format(time.DateOnly),
		Status:     string(record.Status),
		Overdue:    record.Overdue(time.Now()),
	}
	if record.ReturnDate != nil {
		v := record.ReturnDate.Format(time.DateOnly)
		resp.ReturnDate = &v
	}
	return resp
}

func borrowsToResponse(records []domain.BorrowRecord) []BorrowResponse {
	resp := make([]BorrowResponse, len(records))
	for i := range records {
		resp[i] = borrowToResponse(records[i])
	}
	return resp
}
