// Directory HTTP handlers backing the profile card, the approver picker and
// people search.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-claims-backend/internal/domain"
	"github.com/tbourn/go-claims-backend/internal/services"
	"github.com/tbourn/go-claims-backend/internal/utils"
)

// ApproversResponse is the picker option list, sorted by label.
type ApproversResponse struct {
	Options []services.PickerOption `json:"options"`
}

// SearchResponse carries ranked directory matches.
type SearchResponse struct {
	Results []domain.DirectoryEntry `json:"results"`
}

// DirectoryMe godoc
// @ID          directoryMe
// @Summary     Directory profile of the caller
// @Description Falls back to a name derived from the email when the caller is not listed.
// @Tags        Directory
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  services.Profile
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Router      /directory/me [get]
func (h *Handlers) DirectoryMe(c *gin.Context) {
	p, err := h.directory.Profile(c.Request.Context(), actor(c))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DirectoryApprovers godoc
// @ID          directoryApprovers
// @Summary     Approver picker options
// @Tags        Directory
// @Produce     json
// @Security    BearerAuth
// @Success     200  {object}  handlers.ApproversResponse
// @Router      /directory/approvers [get]
func (h *Handlers) DirectoryApprovers(c *gin.Context) {
	opts, err := h.directory.Approvers(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ApproversResponse{Options: opts})
}

// DirectorySearch godoc
// @ID          directorySearch
// @Summary     Search people
// @Description Ranks entries by token overlap with name, email and department.
// @Tags        Directory
// @Produce     json
// @Security    BearerAuth
// @Param       q  query  string  true   "Query"  example(maria accounts)
// @Param       k  query  int     false  "Max results"  minimum(1) maximum(50)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing query"
// @Router      /directory/search [get]
func (h *Handlers) DirectorySearch(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
		return
	}
	k := utils.Clamp(utils.AtoiDefault(c.Query("k"), h.opts.SearchLimit), 1, 50)
	res, err := h.directory.Search(c.Request.Context(), q, k)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, SearchResponse{Results: res})
}
