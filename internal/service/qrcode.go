package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/scanlytics/scanlytics-server/internal/domain"
	"github.com/scanlytics/scanlytics-server/internal/errors"
	"github.com/scanlytics/scanlytics-server/internal/id"
	"github.com/scanlytics/scanlytics-server/internal/metrics"
	"github.com/scanlytics/scanlytics-server/internal/qrimage"
	"github.com/scanlytics/scanlytics-server/internal/sse"
	"github.com/scanlytics/scanlytics-server/internal/store"
	"github.com/scanlytics/scanlytics-server/internal/util"
	"github.com/scanlytics/scanlytics-server/internal/validation"
)

// shortTokenAttempts bounds retries when a generated short token collides.
const shortTokenAttempts = 3

// ShortLinkPath is the route prefix of dynamic short links.
const ShortLinkPath = "/s/"

// GenerateRequest describes a new QR code.
type GenerateRequest struct {
	Title         string                     `json:"title" required:"false" doc:"Display title"`
	Type          domain.ContentType         `json:"type" required:"false" doc:"One of url, text, wifi, vcard, file"`
	Content       json.RawMessage            `json:"content" required:"false" doc:"Content payload; its shape depends on type"`
	Customization *domain.CustomizationPatch `json:"customization,omitempty" doc:"Visual options"`
	IsDynamic     bool                       `json:"isDynamic,omitempty" doc:"Route url codes through a trackable short link"`
}

// UpdateRequest edits a code. Nil or empty fields are left unchanged.
type UpdateRequest struct {
	Title         *string                    `json:"title,omitempty"`
	Content       json.RawMessage            `json:"content,omitempty"`
	Customization *domain.CustomizationPatch `json:"customization,omitempty"`
	IsActive      *bool                      `json:"isActive,omitempty"`
}

// PreviewRequest renders a code without storing it.
type PreviewRequest struct {
	Type          domain.ContentType         `json:"type" required:"false"`
	Content       json.RawMessage            `json:"content" required:"false"`
	Customization *domain.CustomizationPatch `json:"customization,omitempty"`
}

// ListResult is one page of a user's codes.
type ListResult struct {
	QRCodes     []*domain.QRCode `json:"qrCodes"`
	TotalPages  int64            `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	Total       int64            `json:"total"`
}

// QRCodeService manages the QR code catalog.
type QRCodeService struct {
	catalog   store.Catalog
	renderer  *qrimage.Renderer
	validator *validation.Validator
	events    sse.Emitter
	publicURL string
	logger    *slog.Logger
	now       func() time.Time
}

// NewQRCodeService creates a new QR code service. publicURL is the base of
// dynamic short links.
func NewQRCodeService(
	catalog store.Catalog,
	renderer *qrimage.Renderer,
	validator *validation.Validator,
	events sse.Emitter,
	publicURL string,
	logger *slog.Logger,
) *QRCodeService {
	if events == nil {
		events = sse.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &QRCodeService{
		catalog:   catalog,
		renderer:  renderer,
		validator: validator,
		events:    events,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

// checkDefinition applies the create rules: a trimmed title, a known type and
// a non-empty payload, then the per-type payload shape.
func (s *QRCodeService) checkDefinition(title string, t domain.ContentType, content json.RawMessage) error {
	fields := map[string]string{}
	if strings.TrimSpace(title) == "" {
		fields["title"] = "Title is required"
	}
	if !t.Valid() {
		fields["type"] = "Invalid QR type"
	}
	if domain.IsEmptyContent(content) {
		fields["content"] = "Content is required"
	}
	if len(fields) > 0 {
		return errors.ValidationWithDetails("validation failed", fields)
	}
	return s.validator.ValidateContent(t, content)
}

func (s *QRCodeService) checkCustomization(patch *domain.CustomizationPatch) error {
	if patch == nil {
		return nil
	}
	return s.validator.Validate(patch)
}

// Generate renders, stores and announces a new code.
func (s *QRCodeService) Generate(ctx context.Context, userID string, req GenerateRequest) (*domain.QRCode, error) {
	if err := s.checkDefinition(req.Title, req.Type, req.Content); err != nil {
		return nil, err
	}
	if err := s.checkCustomization(req.Customization); err != nil {
		return nil, err
	}

	codeID, err := id.Generate(id.PrefixQRCode)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate id")
	}

	now := s.now().UTC()
	code := &domain.QRCode{
		ID:            codeID,
		UserID:        userID,
		Title:         strings.TrimSpace(req.Title),
		Type:          req.Type,
		Content:       req.Content,
		Customization: domain.DefaultCustomization().Apply(req.Customization),
		IsDynamic:     req.IsDynamic,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Only url codes can redirect, so only they get a short link.
	withShortLink := req.IsDynamic && req.Type == domain.ContentURL

	for attempt := 1; ; attempt++ {
		if withShortLink {
			token, err := id.ShortToken()
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInternal, "generate short token")
			}
			code.ShortURL = token
		}

		if err := s.render(code); err != nil {
			return nil, err
		}

		err := s.catalog.CreateQRCode(ctx, code)
		if err == nil {
			break
		}
		if withShortLink && attempt < shortTokenAttempts && errors.Is(err, store.ErrAlreadyExists) {
			s.logger.Debug("short token collision, retrying", "attempt", attempt)
			continue
		}
		return nil, storeErr("create qr code", err)
	}

	metrics.QRCodesGenerated.WithLabelValues(string(code.Type)).Inc()
	s.events.Emit(sse.NewQRCodeCreatedEvent(code))

	s.logger.Info("qr code generated",
		"id", code.ID,
		"user_id", userID,
		"type", string(code.Type),
		"dynamic", code.IsDynamic)

	return code, nil
}

// List returns a page of userID's codes, newest first. search is a
// case-insensitive substring of the title.
func (s *QRCodeService) List(ctx context.Context, userID string, page store.PageParams, search string) (*ListResult, error) {
	page.Validate()

	filter := store.QRCodeFilter{UserID: userID, Search: strings.TrimSpace(search)}

	codes, err := s.catalog.ListQRCodes(ctx, filter, page.ListOptions())
	if err != nil {
		return nil, storeErr("list qr codes", err)
	}
	total, err := s.catalog.CountQRCodes(ctx, filter)
	if err != nil {
		return nil, storeErr("count qr codes", err)
	}

	if codes == nil {
		codes = []*domain.QRCode{}
	}
	return &ListResult{
		QRCodes:     codes,
		TotalPages:  page.TotalPages(total),
		CurrentPage: page.Page,
		Total:       total,
	}, nil
}

// Get returns one of userID's codes.
func (s *QRCodeService) Get(ctx context.Context, userID, codeID string) (*domain.QRCode, error) {
	return loadOwnedCode(ctx, s.catalog, userID, codeID)
}

// Update edits title, content, customization and the active flag. The image
// is regenerated from the encoded content whenever content or customization
// changes.
func (s *QRCodeService) Update(ctx context.Context, userID, codeID string, req UpdateRequest) (*domain.QRCode, error) {
	code, err := loadOwnedCode(ctx, s.catalog, userID, codeID)
	if err != nil {
		return nil, err
	}
	if err := s.checkCustomization(req.Customization); err != nil {
		return nil, err
	}

	rerender := false

	if !domain.IsEmptyContent(req.Content) && !domain.ContentEqual(req.Content, code.Content) {
		if err := s.validator.ValidateContent(code.Type, req.Content); err != nil {
			return nil, err
		}
		code.Content = req.Content
		rerender = true
	}

	if req.Title != nil {
		if title := strings.TrimSpace(*req.Title); title != "" {
			code.Title = title
		}
	}

	if req.Customization != nil {
		code.Customization = code.Customization.Apply(req.Customization)
		rerender = true
	}

	if req.IsActive != nil {
		code.IsActive = *req.IsActive
	}

	if rerender {
		if err := s.render(code); err != nil {
			return nil, err
		}
	}

	code.UpdatedAt = s.now().UTC()
	if err := s.catalog.UpdateQRCode(ctx, code); err != nil {
		return nil, storeErr("update qr code", err)
	}

	s.events.Emit(sse.NewQRCodeUpdatedEvent(code))
	s.logger.Info("qr code updated", "id", code.ID, "regenerated", rerender)

	return code, nil
}

// Delete removes one of userID's codes together with its scan events.
func (s *QRCodeService) Delete(ctx context.Context, userID, codeID string) error {
	code, err := loadOwnedCode(ctx, s.catalog, userID, codeID)
	if err != nil {
		return err
	}

	removed, err := s.catalog.DeleteQRCode(ctx, code.ID)
	if err != nil {
		if store.IsNotFound(err) {
			return errors.NotFound("QR Code not found")
		}
		return storeErr("delete qr code", err)
	}

	metrics.QRCodesDeleted.Inc()
	s.events.Emit(sse.NewQRCodeDeletedEvent(userID, code.ID, removed))
	s.logger.Info("qr code deleted", "id", code.ID, "scans_removed", removed)

	return nil
}

// Download is a stored code image ready to be served as a file.
type Download struct {
	Filename string
	PNG      []byte
}

// Download returns the stored image of one of userID's codes.
func (s *QRCodeService) Download(ctx context.Context, userID, codeID string) (*Download, error) {
	code, err := loadOwnedCode(ctx, s.catalog, userID, codeID)
	if err != nil {
		return nil, err
	}

	raw, err := qrimage.PNGBytes(code.Image)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "decode stored image")
	}

	name := util.Slug(code.Title)
	if name == "" {
		name = code.ID
	}
	return &Download{Filename: name + ".png", PNG: raw}, nil
}

// Preview renders a code without persisting it and returns the data URL.
func (s *QRCodeService) Preview(req PreviewRequest) (string, error) {
	if err := s.checkDefinition("preview", req.Type, req.Content); err != nil {
		return "", err
	}
	if err := s.checkCustomization(req.Customization); err != nil {
		return "", err
	}

	content, err := domain.EncodeContent(req.Type, req.Content)
	if err != nil {
		return "", errors.Validation("Content could not be encoded")
	}
	return s.renderer.Render(content, domain.DefaultCustomization().Apply(req.Customization))
}

// ShortLink returns the public URL of a short token.
func (s *QRCodeService) ShortLink(token string) string {
	return s.publicURL + ShortLinkPath + token
}

// symbolContent is the string embedded in the symbol: the short link for
// dynamic url codes, the encoded payload otherwise.
func (s *QRCodeService) symbolContent(code *domain.QRCode) (string, error) {
	if code.HasShortLink() {
		return s.ShortLink(code.ShortURL), nil
	}
	content, err := domain.EncodeContent(code.Type, code.Content)
	if err != nil {
		return "", errors.Validation("Content could not be encoded")
	}
	return content, nil
}

func (s *QRCodeService) render(code *domain.QRCode) error {
	content, err := s.symbolContent(code)
	if err != nil {
		return err
	}
	img, err := s.renderer.Render(content, code.Customization)
	if err != nil {
		return err
	}
	code.Image = img
	return nil
}
