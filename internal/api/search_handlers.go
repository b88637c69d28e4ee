package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	domainerrors "github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchQRCodes",
		Method:      http.MethodGet,
		Path:        "/api/qr/search",
		Summary:     "Search QR codes",
		Description: "Full-text search over the titles and content of the caller's codes",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the caller's codes.
type SearchInput struct {
	Authorization string `header:"Authorization"`
	Query         string `query:"q" maxLength:"200" doc:"Search query; empty lists newest first"`
	Types         string `query:"types" maxLength:"100" doc:"Comma-separated content types to include. Omit for all."`
	Active        string `query:"active" doc:"Filter by active flag: true or false"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset        int    `query:"offset" minimum:"0" doc:"Pagination offset"`
	Highlight     bool   `query:"highlight" doc:"Include highlighted fragments"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body *search.SearchResult
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if s.services.Search == nil {
		return nil, domainerrors.Internal("search is not configured")
	}

	params := search.SearchParams{
		UserID:    userID,
		Query:     strings.TrimSpace(input.Query),
		Limit:     input.Limit,
		Offset:    input.Offset,
		Highlight: input.Highlight,
	}

	if input.Types != "" {
		for t := range strings.SplitSeq(input.Types, ",") {
			t = strings.TrimSpace(t)
			if domain.ContentType(t).Valid() {
				params.Types = append(params.Types, t)
			}
		}
	}

	if input.Active == "true" || input.Active == "false" {
		active := input.Active == "true"
		params.Active = &active
	}

	s.logger.Debug("Search request received",
		"query", params.Query,
		"types", params.Types,
		"limit", params.Limit,
	)

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "search")
	}
	return &SearchOutput{Body: result}, nil
}
