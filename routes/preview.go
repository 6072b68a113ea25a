package routes

import (
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	"go.uber.org/zap"

	"pulse-service/config"
	"pulse-service/metrics"
	"pulse-service/pool"
	"pulse-service/ppg"
	"pulse-service/validation"
)

//#region handleFramePreviewUpload

func handleFramePreviewUpload(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")

		ok, status, params, err := validation.ProcessFrameUploadFromPath(logger, pathParams, config)
		if !ok {
			return c.Status(status).SendString(err.Error())
		}

		contentType, status, err := frameContentType(c.Get(fiber.HeaderContentType))
		if err != nil {
			return c.Status(status).SendString(err.Error())
		}
		applyLayoutHint(params, contentType)

		body := c.Body()
		key := cacheKey(kindPreview, bodyDigest(body), params)
		if value, ok := cache.Get(key); ok {
			counters.ServedCached.WithLabelValues(kindPreview, sourceUpload, "").Inc()
			c.Set(fiber.HeaderContentType, value.ContentType)
			c.Set("X-Cache-Place", cachePlaceResponseHandler)
			return c.Send(value.Body)
		}

		return processFramePreview(c, logger, cache, config, perf, params, body, key)
	}
}

//#endregion

//#region handleFramePreviewRequest

func handleFramePreviewRequest(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, origins *pool.OriginValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")
		logger.Info("frame preview request received", zap.String("pathParams", pathParams), zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessFrameContextFromPath(logger, pathParams, config, origins)
		if !ok {
			return c.Status(status).SendString(err.Error())
		}

		key := cacheKey(kindPreview, params.Url, params)
		if value, ok := cache.Get(key); ok {
			counters.ServedCached.WithLabelValues(kindPreview, metrics.CleanHostname(params.HostLabel), metrics.HashURL(params.Url)).Inc()
			c.Set(fiber.HeaderContentType, value.ContentType)
			c.Set("X-Cache-Place", cachePlaceResponseHandler)
			return c.Send(value.Body)
		}

		data, status, err := fetchFrame(c.UserContext(), logger, config, perf, params)
		if err != nil {
			return c.Status(status).SendString(err.Error())
		}

		return processFramePreview(c, logger, cache, config, perf, params, data, key)
	}
}

//#endregion

//#region processFramePreview

// processFramePreview renders the frame, applies resize and scale, then
// encodes PNG or WebP.
func processFramePreview(c *fiber.Ctx, logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, perf *metrics.PerformanceMetrics, params *validation.FrameContext, data []byte, key string) error {
	if len(data) == 0 {
		return c.Status(fiber.StatusUnprocessableEntity).SendString("frame is required for preview")
	}
	frame := ppg.Frame{Data: data, Width: params.Width, Height: params.Height, Layout: params.Layout}

	rgba, err := metrics.TimeFunction(func() (*image.RGBA, error) {
		return ppg.ToRGBA(frame)
	}, "preview", perf)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).SendString(err.Error())
	}

	var img image.Image = rgba
	if params.ResizeWidth > 0 || params.ResizeHeight > 0 {
		img = resizeImage(img, params.ResizeWidth, params.ResizeHeight, params.Interpolation)
	}
	if params.Scale > 0 {
		img = rescaleImage(img, params.Scale, params.Interpolation)
	}

	body, contentType, err := encodePreview(img, params)
	if err != nil {
		logger.Error("failed to encode preview", zap.Error(err), zap.Bool("webp", params.Webp), zap.Int("quality", params.Quality))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to encode image")
	}

	cache.SetWithTTL(key, CacheValue{Body: body, ContentType: contentType}, cacheCost, time.Duration(config.CacheTTL)*time.Second)

	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, fmt.Sprintf("public, max-age=%d", config.HTTPCacheTTL))
	return c.Send(body)
}

//#endregion

// encodePreview returns a copy of the encoded image; the pooled buffer goes
// back before the response is written.
func encodePreview(img image.Image, params *validation.FrameContext) ([]byte, string, error) {
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)

	contentType := "image/png"
	if params.Webp {
		options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(params.Quality))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create webp encoder options: %w", err)
		}
		if err := webp.Encode(buf, img, options); err != nil {
			return nil, "", fmt.Errorf("failed to encode webp: %w", err)
		}
		contentType = "image/webp"
	} else if err := png.Encode(buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode png: %w", err)
	}

	body := make([]byte, buf.Len())
	copy(body, buf.Bytes())
	return body, contentType, nil
}
