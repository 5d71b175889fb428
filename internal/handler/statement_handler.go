package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/institute-fee-api/internal/service"
	"github.com/noah-isme/institute-fee-api/pkg/response"
)

// StatementHandler serves signed statement downloads.
type StatementHandler struct {
	statements *service.StatementService
}

// NewStatementHandler creates a new handler.
func NewStatementHandler(statements *service.StatementService) *StatementHandler {
	return &StatementHandler{statements: statements}
}

// Download godoc
// @Summary Download a generated statement
// @Description Serves the statement file referenced by a signed token
// @Tags Statements
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /statements/{token} [get]
func (h *StatementHandler) Download(c *gin.Context) {
	path, err := h.statements.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, "statement")
}
