package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/circulation"
)

type BooksController struct {
	engine  *circulation.Engine
	auditor Auditor
}

func NewBooksController(engine *circulation.Engine, auditor Auditor) *BooksController {
	return &BooksController{engine: engine, auditor: auditorOrNoop(auditor)}
}

// GetAllBooks handles GET /api/books
func (bc *BooksController) GetAllBooks(c *gin.Context) {
	books, err := bc.engine.ListBooks(c.Request.Context())
	if err != nil {
		respondError(c, err, "list books")
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := bc.engine.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get book")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"book": book})
}

type addBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
	Copies *int   `json:"copies"`
}

// AddBook handles POST /api/books. Copies defaults to 1.
func (bc *BooksController) AddBook(c *gin.Context) {
	var req addBookRequest
	if !bindJSON(c, &req) {
		return
	}
	copies := 1
	if req.Copies != nil {
		copies = *req.Copies
	}

	actor := auth.GetActor(c)
	book, err := bc.engine.AddBook(c.Request.Context(), actor, req.Title, req.Author, req.ISBN, copies)
	if err != nil {
		respondError(c, err, "add book")
		return
	}
	bc.auditor.LogBookAdded(actor.Username, book)
	respondOK(c, http.StatusCreated, gin.H{"book": book})
}
