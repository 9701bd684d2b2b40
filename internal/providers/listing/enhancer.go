// Package listing produces the paid-for output of a request: a reviewed
// product photo or a generated listing description.
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"nudio/internal/domain"
	"nudio/internal/providers/genai"
)

const (
	reviewPrompt      = `Analyze this product photo and confirm it's suitable for e-commerce listing. Respond with just "APPROVED" if the image shows a clear product suitable for sale.`
	imageReadyMessage = "Image ready for enhancement"
	descriptionDone   = "Description generated successfully"
)

// ImageRequest carries an uploaded photo, either raw base64 or a data URL.
type ImageRequest struct {
	ImageBase64 string
}

// ImageResult is returned to the client, which applies the studio background.
type ImageResult struct {
	Image    string `json:"image"`
	Analysis string `json:"analysis,omitempty"`
	Message  string `json:"message"`
}

// DescriptionResult is a generated marketplace description.
type DescriptionResult struct {
	Description string `json:"description"`
	Model       string `json:"model,omitempty"`
	Message     string `json:"message"`
}

// Enhancer is the expensive downstream work that credits pay for.
type Enhancer interface {
	ProcessImage(ctx context.Context, req ImageRequest) (*ImageResult, error)
	WriteDescription(ctx context.Context, productDescription string) (*DescriptionResult, error)
}

// GeminiOptions configures GeminiEnhancer.
type GeminiOptions struct {
	Client     *genai.Client
	ImageModel string
	// TextModels are tried in order; only a 404 moves on to the next one.
	TextModels []string
	Logger     zerolog.Logger
}

// GeminiEnhancer implements Enhancer on the Gemini API.
type GeminiEnhancer struct {
	client     *genai.Client
	imageModel string
	textModels []string
	logger     zerolog.Logger
}

func NewGeminiEnhancer(opts GeminiOptions) (*GeminiEnhancer, error) {
	if opts.Client == nil {
		return nil, errors.New("listing: gemini client is required")
	}
	if len(opts.TextModels) == 0 {
		return nil, errors.New("listing: at least one text model is required")
	}
	imageModel := opts.ImageModel
	if imageModel == "" {
		imageModel = opts.TextModels[0]
	}
	return &GeminiEnhancer{
		client:     opts.Client,
		imageModel: imageModel,
		textModels: opts.TextModels,
		logger:     opts.Logger,
	}, nil
}

// ProcessImage asks the model to review the photo. The review is advisory:
// a failed review still returns the photo for client-side processing.
func (g *GeminiEnhancer) ProcessImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	data, err := imagePayload(req.ImageBase64)
	if err != nil {
		return nil, err
	}

	analysis, err := g.client.GenerateText(ctx, g.imageModel,
		genai.Part{Text: reviewPrompt},
		genai.Part{InlineData: &genai.InlineData{MimeType: "image/jpeg", Data: data}},
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn().Err(err).Str("model", g.imageModel).Msg("listing: image review failed")
	}

	return &ImageResult{Image: req.ImageBase64, Analysis: analysis, Message: imageReadyMessage}, nil
}

// WriteDescription generates an SEO description, falling through the model
// list while models are missing.
func (g *GeminiEnhancer) WriteDescription(ctx context.Context, productDescription string) (*DescriptionResult, error) {
	input := strings.TrimSpace(productDescription)
	if input == "" {
		return nil, ErrEmptyDescription
	}

	prompt := descriptionPrompt(input)
	for _, model := range g.textModels {
		text, err := g.client.GenerateText(ctx, model, genai.Part{Text: prompt})
		if errors.Is(err, genai.ErrModelNotFound) {
			g.logger.Warn().Str("model", model).Msg("listing: model unavailable, trying next")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: description generation failed: %v", domain.ErrProviderFailure, err)
		}
		if text == "" {
			text = fallbackDescription(input)
		}
		return &DescriptionResult{Description: text, Model: model, Message: descriptionDone}, nil
	}
	return nil, fmt.Errorf("%w: description generation failed: all Gemini models unavailable (404)", domain.ErrProviderFailure)
}

var _ Enhancer = (*GeminiEnhancer)(nil)
