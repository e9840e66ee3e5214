package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/search"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// SearchService is the subset of search.Service the handler needs.
type SearchService interface {
	Search(ctx context.Context, in *search.SearchInput) (*search.SearchResult, error)
	Detail(ctx context.Context, in *search.DetailInput) (*search.DetailResult, error)
}

// SearchHandler serves counterparty search and detail.
type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type searchRequest struct {
	Query         string `validate:"max=500"`
	Scope         string `validate:"max=32"`
	Country       string `validate:"omitempty,max=64"`
	SubcategoryID int64  `validate:"gte=0"`
}

// Search handles GET /api/v1/search?q=&scope=&country=&subcategory_id=.
// A scope/country conflict is returned as 422 with the result body.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := searchRequest{
		Query:   q.Get("q"),
		Scope:   q.Get("scope"),
		Country: q.Get("country"),
	}
	if v := strings.TrimSpace(q.Get("subcategory_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeAppError(w, errors.New(errors.ErrCodeValidation, "subcategory_id must be an integer"))
			return
		}
		req.SubcategoryID = id
	}
	if err := validateRequest(req); err != nil {
		writeAppError(w, err)
		return
	}

	in := &search.SearchInput{Query: req.Query, Scope: req.Scope, Country: req.Country}
	if req.SubcategoryID > 0 {
		id := req.SubcategoryID
		in.SubcategoryID = &id
	}
	res, err := h.svc.Search(r.Context(), in)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if res.Error == search.ErrorScopeConflict {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type detailRequest struct {
	Name    string `validate:"required,max=256"`
	Product string `validate:"required,max=500"`
	Scope   string `validate:"max=32"`
}

// Detail handles GET /api/v1/counterparties/{name}?product=&scope=. The
// product may also be passed as q.
func (h *SearchHandler) Detail(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		writeAppError(w, errors.New(errors.ErrCodeValidation, "malformed counterparty name"))
		return
	}
	q := r.URL.Query()
	req := detailRequest{
		Name:    strings.TrimSpace(name),
		Product: q.Get("product"),
		Scope:   q.Get("scope"),
	}
	if req.Product == "" {
		req.Product = q.Get("q")
	}
	if err := validateRequest(req); err != nil {
		writeAppError(w, err)
		return
	}

	res, err := h.svc.Detail(r.Context(), &search.DetailInput{Name: req.Name, Product: req.Product, Scope: req.Scope})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

//Personal.AI order the ending
