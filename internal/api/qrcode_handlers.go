package api

import (
	"context"
	"mime"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/service"
	"github.com/scanlytics/scanlytics-server/internal/store"
)

func (s *Server) registerQRCodeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "generateQRCode",
		Method:        http.MethodPost,
		Path:          "/api/qr/generate",
		Summary:       "Generate QR code",
		Description:   "Renders and stores a new QR code owned by the caller",
		Tags:          []string{"QR Codes"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleGenerateQRCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "previewQRCode",
		Method:      http.MethodPost,
		Path:        "/api/qr/preview",
		Summary:     "Preview QR code",
		Description: "Renders a QR code image without storing it",
		Tags:        []string{"QR Codes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePreviewQRCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "listQRCodes",
		Method:      http.MethodGet,
		Path:        "/api/qr",
		Summary:     "List QR codes",
		Description: "Returns a page of the caller's QR codes, newest first",
		Tags:        []string{"QR Codes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListQRCodes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getQRCode",
		Method:      http.MethodGet,
		Path:        "/api/qr/{id}",
		Summary:     "Get QR code",
		Tags:        []string{"QR Codes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetQRCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateQRCode",
		Method:      http.MethodPut,
		Path:        "/api/qr/{id}",
		Summary:     "Update QR code",
		Description: "Edits a QR code; the image is regenerated when content or customization change",
		Tags:        []string{"QR Codes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateQRCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteQRCode",
		Method:      http.MethodDelete,
		Path:        "/api/qr/{id}",
		Summary:     "Delete QR code",
		Description: "Deletes a QR code and all its scan events",
		Tags:        []string{"QR Codes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteQRCode)

	huma.Register(s.api, huma.Operation{
		OperationID: "downloadQRCode",
		Method:      http.MethodGet,
		Path:        "/api/qr/{id}/image",
		Summary:     "Download QR code image",
		Description: "Returns the stored PNG as a file attachment named after the title",
		Tags:        []string{"QR Codes"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDownloadQRCode)
}

// === DTOs ===

// QRCodeResponse holds a single code.
type QRCodeResponse struct {
	QRCode *domain.QRCode `json:"qrCode" doc:"The QR code"`
}

// QRCodeOutput wraps a single code for Huma.
type QRCodeOutput struct {
	Body QRCodeResponse
}

type GenerateQRCodeInput struct {
	Authorization string `header:"Authorization"`
	Body          service.GenerateRequest
}

type PreviewQRCodeInput struct {
	Authorization string `header:"Authorization"`
	Body          service.PreviewRequest
}

// PreviewResponse carries a rendered image.
type PreviewResponse struct {
	Image string `json:"qrImage" doc:"PNG data URL"`
}

type PreviewOutput struct {
	Body PreviewResponse
}

type ListQRCodesInput struct {
	Authorization string `header:"Authorization"`
	Page          int    `query:"page" doc:"Page number (default 1)"`
	Limit         int    `query:"limit" doc:"Items per page (default 10, max 100)"`
	Search        string `query:"search" doc:"Case-insensitive title substring"`
}

type ListQRCodesOutput struct {
	Body *service.ListResult
}

type QRCodeIDInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"QR code ID"`
}

type UpdateQRCodeInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"QR code ID"`
	Body          service.UpdateRequest
}

// DownloadOutput is a raw PNG body.
type DownloadOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

// MessageResponse is a simple success message response.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps a message response for huma.
type MessageOutput struct {
	Body MessageResponse
}

// === Handlers ===

func (s *Server) handleGenerateQRCode(ctx context.Context, input *GenerateQRCodeInput) (*QRCodeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	code, err := s.services.QRCodes.Generate(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &QRCodeOutput{Body: QRCodeResponse{QRCode: code}}, nil
}

func (s *Server) handlePreviewQRCode(ctx context.Context, input *PreviewQRCodeInput) (*PreviewOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	img, err := s.services.QRCodes.Preview(input.Body)
	if err != nil {
		return nil, err
	}
	return &PreviewOutput{Body: PreviewResponse{Image: img}}, nil
}

func (s *Server) handleListQRCodes(ctx context.Context, input *ListQRCodesInput) (*ListQRCodesOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	page := store.PageParams{Page: input.Page, Limit: input.Limit}
	result, err := s.services.QRCodes.List(ctx, userID, page, input.Search)
	if err != nil {
		return nil, err
	}
	return &ListQRCodesOutput{Body: result}, nil
}

func (s *Server) handleGetQRCode(ctx context.Context, input *QRCodeIDInput) (*QRCodeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	code, err := s.services.QRCodes.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &QRCodeOutput{Body: QRCodeResponse{QRCode: code}}, nil
}

func (s *Server) handleUpdateQRCode(ctx context.Context, input *UpdateQRCodeInput) (*QRCodeOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	code, err := s.services.QRCodes.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &QRCodeOutput{Body: QRCodeResponse{QRCode: code}}, nil
}

func (s *Server) handleDeleteQRCode(ctx context.Context, input *QRCodeIDInput) (*MessageOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	if err := s.services.QRCodes.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "QR Code deleted successfully"}}, nil
}

func (s *Server) handleDownloadQRCode(ctx context.Context, input *QRCodeIDInput) (*DownloadOutput, error) {
	userID, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	file, err := s.services.QRCodes.Download(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &DownloadOutput{
		ContentType:        "image/png",
		ContentDisposition: mime.FormatMediaType("attachment", map[string]string{"filename": file.Filename}),
		Body:               file.PNG,
	}, nil
}
