package routes

import (
	"bytes"
	"fmt"
	"io"
	"mime"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pulse-service/config"
	"pulse-service/metrics"
	pmime "pulse-service/mime"
	"pulse-service/ppg"
	"pulse-service/validation"
)

// RegisterImageRoutes sets up still image routes
func RegisterImageRoutes(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, app *fiber.App, counters *metrics.Metrics, perf *metrics.PerformanceMetrics) {
	// Multipart "image" field: /images/signal/fmt:nv12/t:token
	app.Post("/images/signal/*", handleImageUpload(logger, cache, config, counters, perf))
}

//#region handleImageUpload

// handleImageUpload decodes a still image, converts it to a semi-planar frame
// and extracts the signal from it.
func handleImageUpload(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger.Info("image upload request received", zap.String("remote_ip", c.IP()))

		pathParams := c.Params("*")
		ok, status, params, err := validation.ProcessImageUploadFromPath(logger, pathParams, config)
		if !ok {
			return c.Status(status).SendString(err.Error())
		}

		body, err := c.FormFile("image")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("failed to get image file")
		}

		contentType := body.Header.Get(fiber.HeaderContentType)
		if contentType == "" {
			return c.Status(fiber.StatusUnsupportedMediaType).SendString("no content type received")
		}

		parsedContentType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("failed to parse content type")
		}

		if !pmime.IsImageMime(parsedContentType) {
			return c.Status(fiber.StatusUnsupportedMediaType).SendString(fmt.Sprintf("content type '%s' is not allowed", parsedContentType))
		}

		imageFile, err := body.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("failed to open image file")
		}
		defer imageFile.Close()

		imageData, err := io.ReadAll(imageFile)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).SendString("failed to read image file")
		}

		key := cacheKey(kindSignal, bodyDigest(imageData), params)
		if value, ok := cache.Get(key); ok {
			counters.ServedCached.WithLabelValues(kindSignal, sourceImage, "").Inc()
			c.Set(fiber.HeaderContentType, value.ContentType)
			c.Set("X-Cache-Place", cachePlaceResponseHandler)
			return c.Send(value.Body)
		}

		done := metrics.TimeDecode(sourceImage, perf)
		img, err := pmime.DecodeImage(bytes.NewReader(imageData), parsedContentType)
		done()
		if err != nil {
			logger.Error("failed to read image", zap.Error(err), zap.String("content_type", parsedContentType), zap.Int("image_size", len(imageData)))
			counters.FramesRejected.WithLabelValues("decode").Inc()
			return c.Status(fiber.StatusUnprocessableEntity).SendString("failed to read image")
		}

		frame := ppg.FromImage(img, params.Layout)
		if frame.Width == 0 || frame.Height == 0 {
			return c.Status(fiber.StatusUnprocessableEntity).SendString("image too small for a 4:2:0 frame")
		}
		params.Width = frame.Width
		params.Height = frame.Height

		return processFrameSignal(c, logger, cache, config, counters, perf, params, frame.Data, sourceImage, key)
	}
}

//#endregion
