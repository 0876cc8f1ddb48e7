package httpapi

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"libraryCirculation/internal/catalog"
	"libraryCirculation/internal/liberr"
	"libraryCirculation/repository"
)

type createBookRequest struct {
	UniqueCode string `json:"unique_code"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	Category   string `json:"category"`
}

type borrowRequest struct {
	UniqueCode string `json:"unique_code" binding:"required"`
	UserID     *int64 `json:"user_id"`
}

type returnRequest struct {
	UniqueCode string `json:"unique_code" binding:"required"`
}

func (h *handler) listBooks(c *gin.Context) {
	who, _ := caller(c)
	books, err := h.Catalog.ListBooks(c.Request.Context(), who, catalog.ListQuery{
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"books": books})
}

func (h *handler) stats(c *gin.Context) {
	who, _ := caller(c)
	counts, err := h.Catalog.Stats(c.Request.Context(), who)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

func (h *handler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	who, _ := caller(c)
	b, err := h.Catalog.CreateBook(c.Request.Context(), who, repository.NewBook{
		UniqueCode: req.UniqueCode,
		Title:      req.Title,
		Author:     req.Author,
		Category:   req.Category,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": b})
}

func (h *handler) bulkCreate(c *gin.Context) {
	var req catalog.BulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	who, _ := caller(c)
	n, err := h.Catalog.BulkCreate(c.Request.Context(), who, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "created": n})
}

func (h *handler) history(c *gin.Context) {
	who, _ := caller(c)
	txs, err := h.Engine.History(c.Request.Context(), who, c.Param("code"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

func (h *handler) borrow(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	who, _ := caller(c)
	b, err := h.Engine.Borrow(c.Request.Context(), who, req.UniqueCode, req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": b})
}

func (h *handler) returnBook(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	who, _ := caller(c)
	b, err := h.Engine.Return(c.Request.Context(), who, req.UniqueCode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": b})
}

func (h *handler) unreturned(c *gin.Context) {
	who, _ := caller(c)
	report, err := h.Catalog.UnreturnedByGrade(c.Request.Context(), who)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (h *handler) importBooks(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		h.fail(c, liberr.Wrap(liberr.KindInvalidInput, "no file uploaded", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()

	who, _ := caller(c)
	res, err := h.Catalog.ImportCSV(c.Request.Context(), who, f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": res.Count, "created": res.Created})
}

func (h *handler) exportBooks(c *gin.Context) {
	who, _ := caller(c)
	var buf bytes.Buffer
	if err := h.Catalog.ExportCSV(c.Request.Context(), who, &buf); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="books.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
