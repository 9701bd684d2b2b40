package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyImage       = errors.New("no image provided")
	ErrEmptyDescription = errors.New("no product description provided")
)

// StaticEnhancer needs no external service. It serves local development and
// tests when GEMINI_API_KEY is unset.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (StaticEnhancer) ProcessImage(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := imagePayload(req.ImageBase64); err != nil {
		return nil, err
	}
	return &ImageResult{Image: req.ImageBase64, Message: imageReadyMessage}, nil
}

func (StaticEnhancer) WriteDescription(ctx context.Context, productDescription string) (*DescriptionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	input := strings.TrimSpace(productDescription)
	if input == "" {
		return nil, ErrEmptyDescription
	}
	return &DescriptionResult{Description: fallbackDescription(input), Message: descriptionDone}, nil
}

var _ Enhancer = StaticEnhancer{}

// imagePayload strips a data URL prefix and returns the bare base64 data.
func imagePayload(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = raw[i+1:]
	}
	if raw == "" {
		return "", ErrEmptyImage
	}
	return raw, nil
}

func descriptionPrompt(input string) string {
	return fmt.Sprintf(`You are an expert eBay listing copywriter. Create a compelling, SEO-optimized product description based on this input:

"%s"

Write a professional eBay listing description that:
1. Highlights key features and benefits
2. Uses persuasive language to attract buyers
3. Includes relevant keywords for search optimization
4. Mentions condition, quality, and value proposition
5. Creates urgency and trust
6. Is 3-5 sentences long

Make it punchy, professional, and conversion-focused. Do NOT use emojis.`, input)
}

func fallbackDescription(input string) string {
	return fmt.Sprintf("Premium quality product in excellent condition. %s. This item ships fast with satisfaction guaranteed. Limited availability - order now to secure this exceptional value. Perfect for buyers seeking quality and reliability.", input)
}
