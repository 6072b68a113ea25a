package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"pulse-service/config"
	"pulse-service/pool"
	"pulse-service/ppg"

	"github.com/gofiber/fiber/v2"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

type FrameContext struct {
	Url string

	// Geometry of the raw frame. Zero for image and video inputs.
	Width  int
	Height int
	Layout ppg.Layout
	// LayoutFixed is set once the path or a Content-Type names the layout.
	LayoutFixed bool

	// Preview rendering
	Quality       int
	ResizeWidth   int
	ResizeHeight  int
	Scale         float64
	Interpolation resize.InterpolationFunction
	Webp          bool

	Hostname string
	// HostLabel is the hostname as used in metric labels.
	HostLabel string

	// Optional explicit archive object key provided by request (requires signature)
	CustomObjectKey string
}

func (c *FrameContext) String() string {
	return fmt.Sprintf("w=%d;h=%d;fmt=%s;quality=%d;rw=%d;rh=%d;scale=%f;interpolation=%d;webp=%t",
		c.Width, c.Height, c.Layout, c.Quality, c.ResizeWidth, c.ResizeHeight, c.Scale, c.Interpolation, c.Webp)
}

// PathParams holds the parsed parameters from the URL path
type PathParams struct {
	Width         int
	Height        int
	Layout        string
	Quality       int
	ResizeWidth   int
	ResizeHeight  int
	Scale         float64
	Interpolation resize.InterpolationFunction
	Webp          bool
	Signature     string
	Token         string
	EncodedURL    string
	Location      string
}

// ParsePathParams extracts parameters from the URL path
// Expected format: /frames/w:640/h:480/fmt:nv21/sig:abc123/{base64-url}
// Preview adds: q:80/rw:320/rh:240/s:0.5/i:2/webp
// Archive location: loc:base64location/sig:abc123
func ParsePathParams(pathParams string) (*PathParams, error) {
	params := &PathParams{
		Quality:       100,
		Interpolation: resize.Lanczos3,
	}

	trimmed := strings.Trim(pathParams, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("no path parameters found")
	}
	parts := strings.Split(trimmed, "/")

	// The last part is the encoded URL when it does not look like a parameter.
	// A parameter either contains ":" or is exactly "webp".
	processParts := parts
	lastPart := parts[len(parts)-1]
	if !strings.Contains(lastPart, ":") && lastPart != "webp" {
		params.EncodedURL = lastPart
		processParts = parts[:len(parts)-1]
	}

	for _, part := range processParts {
		if part == "webp" {
			params.Webp = true
			continue
		}

		key, value, found := strings.Cut(part, ":")
		if !found {
			continue
		}

		switch key {
		case "w", "width":
			w, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid width %q", value)
			}
			params.Width = w
		case "h", "height":
			h, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid height %q", value)
			}
			params.Height = h
		case "fmt", "format":
			params.Layout = strings.ToLower(value)
		case "q", "quality":
			if q, err := strconv.Atoi(value); err == nil && q >= 1 && q <= 100 {
				params.Quality = q
			}
		case "rw":
			if w, err := strconv.Atoi(value); err == nil && w > 0 {
				params.ResizeWidth = w
			}
		case "rh":
			if h, err := strconv.Atoi(value); err == nil && h > 0 {
				params.ResizeHeight = h
			}
		case "s", "scale":
			if s, err := strconv.ParseFloat(value, 64); err == nil && s > 0 && s <= 1 {
				params.Scale = s
			}
		case "i", "interpolation":
			if i, err := strconv.Atoi(value); err == nil && i >= 0 && i <= 5 {
				params.Interpolation = resize.InterpolationFunction(i)
			}
		case "sig", "signature":
			params.Signature = value
		case "t", "token":
			params.Token = value
		case "loc", "location":
			params.Location = value
		}
	}

	return params, nil
}

// DecodeURL decodes a base64-encoded URL
func DecodeURL(encodedURL string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(encodedURL)
	if err != nil {
		return "", fmt.Errorf("failed to decode URL: %w", err)
	}
	return string(decoded), nil
}

// DecodeBase64URL decodes a base64 URL-safe encoded string
func DecodeBase64URL(encoded string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}
	return string(decoded), nil
}

func compareHmac(url, providedSignature, secret string) bool {
	return compareHmacForMessage(url, providedSignature, secret)
}

// compareHmacForMessage validates a hex HMAC-SHA256 of message
func compareHmacForMessage(message, providedSignature, secret string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expectedMAC := mac.Sum(nil)

	providedMAC, err := hex.DecodeString(providedSignature)
	if err != nil {
		return false
	}

	return hmac.Equal(expectedMAC, providedMAC)
}

// sanitizeLocation ensures an archive object key is in an acceptable format
func sanitizeLocation(loc string) (string, error) {
	if len(loc) == 0 || len(loc) > 512 {
		return "", fmt.Errorf("invalid location length")
	}
	if strings.Contains(loc, "..") || strings.Contains(loc, "\\") {
		return "", fmt.Errorf("invalid location characters")
	}
	for _, r := range loc {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '/' || r == '-' || r == '_' || r == '.' {
			continue
		}
		return "", fmt.Errorf("invalid character in location")
	}
	return strings.TrimLeft(loc, "/"), nil
}

// validateGeometry checks declared frame dimensions. Buffer length is checked
// later against the body.
func validateGeometry(params *PathParams, config *config.Config) (int, error) {
	if params.Width <= 0 || params.Height <= 0 {
		return fiber.StatusBadRequest, fmt.Errorf("w and h are required and must be positive")
	}
	if params.Width%2 != 0 || params.Height%2 != 0 {
		return fiber.StatusBadRequest, fmt.Errorf("w and h must be even for 4:2:0 chroma")
	}
	if config.MaxFrameWidth > 0 && params.Width > config.MaxFrameWidth {
		return fiber.StatusBadRequest, fmt.Errorf("w exceeds maximum of %d", config.MaxFrameWidth)
	}
	if config.MaxFrameHeight > 0 && params.Height > config.MaxFrameHeight {
		return fiber.StatusBadRequest, fmt.Errorf("h exceeds maximum of %d", config.MaxFrameHeight)
	}
	return fiber.StatusOK, nil
}

func validateToken(params *PathParams, config *config.Config) (int, error) {
	if config.Token != "" && params.Token != config.Token {
		return fiber.StatusForbidden, fmt.Errorf("invalid token")
	}
	return fiber.StatusOK, nil
}

func frameContext(params *PathParams, layout ppg.Layout, config *config.Config) *FrameContext {
	webp := params.Webp || config.Webp

	return &FrameContext{
		Width:         params.Width,
		Height:        params.Height,
		Layout:        layout,
		LayoutFixed:   params.Layout != "",
		Quality:       params.Quality,
		ResizeWidth:   params.ResizeWidth,
		ResizeHeight:  params.ResizeHeight,
		Scale:         params.Scale,
		Interpolation: params.Interpolation,
		Webp:          webp,
	}
}

// ProcessFrameUploadFromPath validates parameters for a frame sent in the
// request body. The token is required only when one is configured.
func ProcessFrameUploadFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *FrameContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	if status, err := validateToken(params, config); err != nil {
		return false, status, nil, err
	}

	if status, err := validateGeometry(params, config); err != nil {
		return false, status, nil, err
	}

	layout, ok := ppg.ParseLayout(params.Layout)
	if !ok {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("unsupported frame format %q", params.Layout)
	}

	logger.Debug("frame upload parameters", zap.Int("width", params.Width), zap.Int("height", params.Height), zap.Stringer("layout", layout))

	return true, fiber.StatusOK, frameContext(params, layout, config), nil
}

// ProcessFrameContextFromPath validates parameters for a frame fetched from
// the base64 URL at the end of the path.
func ProcessFrameContextFromPath(logger *zap.Logger, pathParams string, config *config.Config, origins *pool.OriginValidator) (bool, int, *FrameContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}

	if status, err := validateGeometry(params, config); err != nil {
		return false, status, nil, err
	}

	layout, ok := ppg.ParseLayout(params.Layout)
	if !ok {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("unsupported frame format %q", params.Layout)
	}

	urlParam, status, err := resolveURL(params, config)
	if err != nil {
		return false, status, nil, err
	}

	valid, hostname := origins.Validate(logger, urlParam)
	if !valid {
		return false, fiber.StatusForbidden, nil, fmt.Errorf("url is not allowed")
	}

	ctx := frameContext(params, layout, config)
	ctx.Url = urlParam
	ctx.Hostname = hostname
	ctx.HostLabel = origins.MetricLabel(hostname)
	return true, fiber.StatusOK, ctx, nil
}

// resolveURL decodes the URL and enforces its signature when an HMAC key is
// configured.
func resolveURL(params *PathParams, config *config.Config) (string, int, error) {
	if params.EncodedURL == "" {
		return "", fiber.StatusBadRequest, fmt.Errorf("url is required")
	}

	urlParam, err := DecodeURL(params.EncodedURL)
	if err != nil {
		return "", fiber.StatusBadRequest, err
	}

	if config.HmacKey != "" {
		if params.Signature == "" {
			return "", fiber.StatusForbidden, fmt.Errorf("signature is required")
		}
		if !compareHmac(urlParam, params.Signature, config.HmacKey) {
			return "", fiber.StatusForbidden, fmt.Errorf("invalid signature")
		}
	}

	return urlParam, fiber.StatusOK, nil
}

// ProcessImageUploadFromPath validates parameters for a still image upload.
func ProcessImageUploadFromPath(logger *zap.Logger, pathParams string, config *config.Config) (bool, int, *FrameContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil && strings.Trim(pathParams, "/") != "" {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}
	if params == nil {
		params = &PathParams{Quality: 100, Interpolation: resize.Lanczos3}
	}

	if status, err := validateToken(params, config); err != nil {
		return false, status, nil, err
	}

	layout, ok := ppg.ParseLayout(params.Layout)
	if !ok {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("unsupported frame format %q", params.Layout)
	}

	return true, fiber.StatusOK, frameContext(params, layout, config), nil
}

// ProcessVideoContextFromPath validates parameters for a video signal run.
// With fetch set the URL is required. A custom archive location needs an
// HMAC over "location" (uploads) or "url|location" (fetches).
func ProcessVideoContextFromPath(logger *zap.Logger, pathParams string, config *config.Config, origins *pool.OriginValidator, fetch bool) (bool, int, *FrameContext, error) {
	params, err := ParsePathParams(pathParams)
	if err != nil && (fetch || strings.Trim(pathParams, "/") != "") {
		return false, fiber.StatusBadRequest, nil, fmt.Errorf("invalid path parameters: %w", err)
	}
	if params == nil {
		params = &PathParams{Quality: 100, Interpolation: resize.Lanczos3}
	}

	ctx := frameContext(params, ppg.LayoutNV21, config)

	if fetch {
		if params.EncodedURL == "" {
			return false, fiber.StatusBadRequest, nil, fmt.Errorf("url is required")
		}

		urlParam, err := DecodeURL(params.EncodedURL)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, err
		}

		// Without a location the signature covers the URL alone.
		if params.Location == "" && config.HmacKey != "" {
			if params.Signature == "" || !compareHmac(urlParam, params.Signature, config.HmacKey) {
				return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature")
			}
		}

		valid, hostname := origins.Validate(logger, urlParam)
		if !valid {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("url is not allowed")
		}
		ctx.Url = urlParam
		ctx.Hostname = hostname
		ctx.HostLabel = origins.MetricLabel(hostname)
	} else if status, err := validateToken(params, config); err != nil {
		return false, status, nil, err
	}

	if params.Location != "" {
		if config.HmacKey == "" || params.Signature == "" {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("signature required for custom location")
		}

		decodedLocation, err := DecodeBase64URL(params.Location)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, err
		}

		sanitized, err := sanitizeLocation(decodedLocation)
		if err != nil {
			return false, fiber.StatusBadRequest, nil, err
		}

		signedMsg := sanitized
		if ctx.Url != "" {
			signedMsg = ctx.Url + "|" + sanitized
		}

		if !compareHmacForMessage(signedMsg, params.Signature, config.HmacKey) {
			return false, fiber.StatusForbidden, nil, fmt.Errorf("invalid signature for location")
		}
		ctx.CustomObjectKey = sanitized
	}

	return true, fiber.StatusOK, ctx, nil
}
