package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pulse-service/client"
	"pulse-service/config"
	"pulse-service/metrics"
	pmime "pulse-service/mime"
	"pulse-service/pool"
	"pulse-service/ppg"
	"pulse-service/validation"
)

const (
	kindSignal  = "signal"
	kindPreview = "preview"

	sourceUpload = "upload"
	sourceURL    = "url"
	sourceImage  = "image"
	sourceVideo  = "video"
)

// signalResponse is the JSON body returned for a single frame.
type signalResponse struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Layout string `json:"layout"`
	ppg.Sample
}

// RegisterFrameRoutes sets up raw frame routes
func RegisterFrameRoutes(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, app *fiber.App, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, origins *pool.OriginValidator) {
	// Preview routes first: /frames/* would otherwise swallow them.
	app.Get("/frames/preview/*", handleFramePreviewRequest(logger, cache, config, counters, perf, origins))
	app.Post("/frames/preview/*", handleFramePreviewUpload(logger, cache, config, counters, perf))

	// Signal from a remote frame: /frames/w:640/h:480/fmt:nv21/{base64-encoded-url}
	app.Get("/frames/*", handleFrameRequest(logger, cache, config, counters, perf, origins))

	// Signal from a frame in the body: /frames/w:640/h:480
	app.Post("/frames/*", handleFrameUpload(logger, cache, config, counters, perf))
}

//#region handleFrameUpload

func handleFrameUpload(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")
		logger.Debug("frame upload received", zap.String("pathParams", pathParams), zap.Int("size", len(c.Body())), zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessFrameUploadFromPath(logger, pathParams, config)
		if !ok {
			counters.FramesRejected.WithLabelValues("params").Inc()
			return c.Status(status).SendString(err.Error())
		}

		contentType, status, err := frameContentType(c.Get(fiber.HeaderContentType))
		if err != nil {
			counters.FramesRejected.WithLabelValues("content_type").Inc()
			return c.Status(status).SendString(err.Error())
		}
		applyLayoutHint(params, contentType)

		// The request body is only valid inside the handler.
		body := c.Body()
		var data []byte
		if len(body) > 0 {
			data = body
		}

		key := cacheKey(kindSignal, bodyDigest(body), params)
		if value, ok := cache.Get(key); ok {
			counters.ServedCached.WithLabelValues(kindSignal, sourceUpload, "").Inc()
			c.Set(fiber.HeaderContentType, value.ContentType)
			c.Set("X-Cache-Place", cachePlaceResponseHandler)
			return c.Send(value.Body)
		}

		return processFrameSignal(c, logger, cache, config, counters, perf, params, data, sourceUpload, key)
	}
}

//#endregion

//#region handleFrameRequest

func handleFrameRequest(logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, origins *pool.OriginValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")
		logger.Info("frame request received", zap.String("pathParams", pathParams), zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessFrameContextFromPath(logger, pathParams, config, origins)
		if !ok {
			logger.Error("failed to process frame context from path", zap.String("pathParams", pathParams), zap.Int("status", status), zap.Error(err))
			counters.FramesRejected.WithLabelValues("params").Inc()
			return c.Status(status).SendString(err.Error())
		}

		key := cacheKey(kindSignal, params.Url, params)
		if value, ok := cache.Get(key); ok {
			counters.ServedCached.WithLabelValues(kindSignal, metrics.CleanHostname(params.HostLabel), metrics.HashURL(params.Url)).Inc()
			c.Set(fiber.HeaderContentType, value.ContentType)
			c.Set("X-Cache-Place", cachePlaceResponseHandler)
			return c.Send(value.Body)
		}

		data, status, err := fetchFrame(c.UserContext(), logger, config, perf, params)
		if err != nil {
			return c.Status(status).SendString(err.Error())
		}

		return processFrameSignal(c, logger, cache, config, counters, perf, params, data, sourceURL, key)
	}
}

//#endregion

//#region processFrameSignal

// processFrameSignal extracts the sample, caches the JSON response and sends it.
func processFrameSignal(c *fiber.Ctx, logger *zap.Logger, cache *ristretto.Cache[string, CacheValue], config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, params *validation.FrameContext, data []byte, source, key string) error {
	sample, status, err := extractSample(logger, counters, perf, params, data, source)
	if err != nil {
		return c.Status(status).SendString(err.Error())
	}

	body, err := json.Marshal(signalResponse{
		Width:  params.Width,
		Height: params.Height,
		Layout: params.Layout.String(),
		Sample: sample,
	})
	if err != nil {
		logger.Error("failed to encode signal response", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("failed to encode response")
	}

	cache.SetWithTTL(key, CacheValue{Body: body, ContentType: fiber.MIMEApplicationJSON}, cacheCost, time.Duration(config.CacheTTL)*time.Second)

	logger.Debug("frame signal served", zap.String("source", source), zap.Int("signal", sample.Signal), zap.Bool("finger", sample.Finger))

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

//#endregion

// extractSample runs the extractor over one frame and records metrics. A nil
// data slice is an absent frame and yields the zero sample.
func extractSample(logger *zap.Logger, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, params *validation.FrameContext, data []byte, source string) (ppg.Sample, int, error) {
	frame := ppg.Frame{Data: data, Width: params.Width, Height: params.Height, Layout: params.Layout}
	layout := params.Layout.String()

	if data != nil {
		perf.FrameSizeBytes.WithLabelValues(layout).Observe(float64(len(data)))
	}

	sample, err := metrics.TimeFunction(func() (ppg.Sample, error) {
		return ppg.Extract(frame)
	}, "extract", perf)
	if err != nil {
		if errors.Is(err, ppg.ErrInvalidGeometry) {
			counters.FramesRejected.WithLabelValues("geometry").Inc()
			logger.Warn("frame rejected", zap.Error(err), zap.String("source", source))
			return ppg.Sample{}, fiber.StatusUnprocessableEntity, err
		}
		logger.Error("failed to extract signal", zap.Error(err), zap.String("source", source))
		return ppg.Sample{}, fiber.StatusInternalServerError, fmt.Errorf("failed to extract signal")
	}

	counters.FramesProcessed.WithLabelValues(source, layout).Inc()
	if data != nil {
		counters.ObserveFinger(sample.Finger)
	}

	return sample, fiber.StatusOK, nil
}

// fetchFrame downloads a remote raw frame, refusing anything larger than the
// declared geometry allows.
func fetchFrame(ctx context.Context, logger *zap.Logger, config *config.Config, perf *metrics.PerformanceMetrics, params *validation.FrameContext) ([]byte, int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(config.FetchTimeout)*time.Second)
	defer cancel()

	done := metrics.TimeFetch(params.HostLabel, perf)
	data, contentType, err := client.Fetch(fetchCtx, client.GetHTTPClient(), params.Url, int64(ppg.FrameLength(params.Width, params.Height)))
	done()
	if err != nil {
		if errors.Is(err, client.ErrTooLarge) {
			return nil, fiber.StatusUnprocessableEntity, fmt.Errorf("%w: remote frame larger than %dx%d", ppg.ErrInvalidGeometry, params.Width, params.Height)
		}
		logger.Error("failed to fetch frame", zap.Error(err), zap.String("url", params.Url), zap.String("hostname", params.Hostname))
		return nil, fiber.StatusBadGateway, fmt.Errorf("failed to fetch frame")
	}

	parsed, status, err := frameContentType(contentType)
	if err != nil {
		logger.Error("invalid frame content type", zap.String("content_type", contentType), zap.String("url", params.Url))
		return nil, status, err
	}
	applyLayoutHint(params, parsed)

	return data, fiber.StatusOK, nil
}

// frameContentType parses and checks a raw frame Content-Type header.
func frameContentType(header string) (string, int, error) {
	if header == "" {
		return "", fiber.StatusOK, nil
	}

	parsed, _, err := mime.ParseMediaType(header)
	if err != nil {
		return "", fiber.StatusBadRequest, fmt.Errorf("failed to parse content type")
	}
	if !pmime.IsFrameMime(parsed) {
		return "", fiber.StatusUnsupportedMediaType, fmt.Errorf("content type '%s' is not a raw frame", parsed)
	}
	return parsed, fiber.StatusOK, nil
}

// applyLayoutHint lets an image/x-nv12 Content-Type pick the layout when the
// path did not name one.
func applyLayoutHint(params *validation.FrameContext, contentType string) {
	if params.LayoutFixed {
		return
	}
	if hint := pmime.LayoutHint(contentType); hint != "" {
		if layout, ok := ppg.ParseLayout(hint); ok {
			params.Layout = layout
			params.LayoutFixed = true
		}
	}
}
