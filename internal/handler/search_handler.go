package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/aqstack/ragstore/internal/pkg/errcode"
	"github.com/aqstack/ragstore/internal/pkg/response"
	"github.com/aqstack/ragstore/internal/service"
)

type SearchHandler struct {
	retrieval *service.RetrievalService
	assembler *service.ContextAssembler
}

func NewSearchHandler(retrieval *service.RetrievalService, assembler *service.ContextAssembler) *SearchHandler {
	return &SearchHandler{retrieval: retrieval, assembler: assembler}
}

type searchRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k"`
	MinScore    *float32 `json:"min_score"`
	DocumentIDs []string `json:"document_ids"`
}

func (r *searchRequest) minScore() float32 {
	if r.MinScore == nil {
		return -1
	}
	return *r.MinScore
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	results, err := h.retrieval.Retrieve(c.Request.Context(), req.Query, req.TopK, req.minScore(), req.DocumentIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}

func (h *SearchHandler) Context(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.assembler.Assemble(c.Request.Context(), req.Query, req.TopK, req.minScore(), req.DocumentIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}
