// Package handlers contains the HTTP handlers of the analysis API.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscope/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an application error onto its HTTP status.  Internal
// errors are masked so implementation detail never leaks to the client.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	resp := ErrorResponse{
		Code:    code.String(),
		Message: err.Error(),
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.Detail != "" {
		resp.Detail = appErr.Detail
	}
	if status >= http.StatusInternalServerError {
		resp.Message = "internal server error"
		resp.Detail = ""
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// parsePagination reads page and page_size query parameters, falling back
// to the first page of twenty.
func parsePagination(c *gin.Context) (int, int) {
	page := 1
	pageSize := 20

	if v := c.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := c.Query("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= 100 {
			pageSize = ps
		}
	}
	return page, pageSize
}
