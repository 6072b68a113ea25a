package routes

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"pulse-service/client"
	"pulse-service/config"
	"pulse-service/metrics"
	pmime "pulse-service/mime"
	"pulse-service/pool"
	"pulse-service/ppg"
	"pulse-service/storage"
	"pulse-service/validation"
)

// videoResponse is the JSON body of a video signal run.
type videoResponse struct {
	*storage.Series
	Archived  bool `json:"archived"`
	Truncated bool `json:"truncated"`
}

// RegisterVideoRoutes sets up video signal routes. archive may be nil when
// S3 is disabled.
func RegisterVideoRoutes(logger *zap.Logger, config *config.Config, app *fiber.App, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, origins *pool.OriginValidator, archive *storage.SignalArchive) {
	// Multipart "video" field: /videos/signal/t:token or /videos/signal/loc:{base64}/sig:{hmac}
	app.Post("/videos/signal/*", handleVideoUpload(logger, config, counters, perf, archive))

	// Remote video: /videos/signal/sig:{hmac}/{base64-encoded-url}
	app.Get("/videos/signal/*", handleVideoRequest(logger, config, counters, perf, origins, archive))

	// Archived series: /videos/archive/{id}
	app.Get("/videos/archive/*", handleArchiveRequest(logger, archive))
}

//#region handleVideoUpload

func handleVideoUpload(logger *zap.Logger, config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, archive *storage.SignalArchive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger.Info("video upload request received", zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessVideoContextFromPath(logger, c.Params("*"), config, nil, false)
		if !ok {
			logger.Error("upload validation failed", zap.Int("status", status), zap.Error(err))
			return c.Status(status).SendString(err.Error())
		}

		if params.CustomObjectKey != "" && archive == nil {
			logger.Error("S3 storage is not enabled or configured")
			return c.Status(fiber.StatusServiceUnavailable).SendString("signal archive unavailable")
		}

		fileHeader, err := c.FormFile("video")
		if err != nil {
			logger.Error("failed to get video file", zap.Error(err))
			return c.Status(fiber.StatusBadRequest).SendString("video file is required")
		}

		if config.MaxVideoSize > 0 {
			maxSizeBytes := int64(config.MaxVideoSize) * 1024 * 1024
			if fileHeader.Size > maxSizeBytes {
				logger.Error("video file too large", zap.Int64("size", fileHeader.Size), zap.Int("maxMB", config.MaxVideoSize))
				return c.Status(fiber.StatusRequestEntityTooLarge).SendString(fmt.Sprintf("video file exceeds maximum size of %d MB", config.MaxVideoSize))
			}
		}

		contentType := fileHeader.Header.Get(fiber.HeaderContentType)
		if contentType == "" {
			return c.Status(fiber.StatusUnsupportedMediaType).SendString("content type is required")
		}

		parsedContentType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).SendString("invalid content type")
		}

		if !pmime.IsVideoMime(parsedContentType) {
			logger.Error("invalid content type", zap.String("contentType", parsedContentType))
			return c.Status(fiber.StatusUnsupportedMediaType).SendString(fmt.Sprintf("content type '%s' is not a video", parsedContentType))
		}

		// The decoder needs a seekable file.
		tmp, err := os.CreateTemp("", "pulse-upload-*")
		if err != nil {
			logger.Error("failed to create temp file", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("failed to store video file")
		}
		tmpPath := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpPath)

		if err := c.SaveFile(fileHeader, tmpPath); err != nil {
			logger.Error("failed to save video file", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).SendString("failed to store video file")
		}

		return processVideoSignal(c, logger, config, counters, perf, archive, params, tmpPath, sourceUpload)
	}
}

//#endregion

//#region handleVideoRequest

func handleVideoRequest(logger *zap.Logger, config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, origins *pool.OriginValidator, archive *storage.SignalArchive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pathParams := c.Params("*")
		logger.Info("video request received", zap.String("pathParams", pathParams), zap.String("remote_ip", c.IP()))

		ok, status, params, err := validation.ProcessVideoContextFromPath(logger, pathParams, config, origins, true)
		if !ok {
			logger.Error("failed to process video context from path", zap.String("pathParams", pathParams), zap.Int("status", status), zap.Error(err))
			return c.Status(status).SendString(err.Error())
		}

		if params.CustomObjectKey != "" && archive == nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("signal archive unavailable")
		}

		tmpPath, status, err := fetchVideo(c.UserContext(), logger, config, perf, params)
		if err != nil {
			return c.Status(status).SendString(err.Error())
		}
		defer os.Remove(tmpPath)

		return processVideoSignal(c, logger, config, counters, perf, archive, params, tmpPath, metrics.CleanHostname(params.Hostname))
	}
}

// fetchVideo downloads the remote video into a temp file and returns its path.
func fetchVideo(ctx context.Context, logger *zap.Logger, config *config.Config, perf *metrics.PerformanceMetrics, params *validation.FrameContext) (string, int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(config.FetchTimeout)*time.Second)
	defer cancel()

	var maxBytes int64
	if config.MaxVideoSize > 0 {
		maxBytes = int64(config.MaxVideoSize) * 1024 * 1024
	}

	done := metrics.TimeFetch(params.HostLabel, perf)
	data, contentType, err := client.Fetch(fetchCtx, client.GetHTTPClient(), params.Url, maxBytes)
	done()
	if err != nil {
		if errors.Is(err, client.ErrTooLarge) {
			return "", fiber.StatusRequestEntityTooLarge, fmt.Errorf("video exceeds maximum size of %d MB", config.MaxVideoSize)
		}
		logger.Error("failed to fetch video", zap.Error(err), zap.String("url", params.Url), zap.String("hostname", params.Hostname))
		return "", fiber.StatusBadGateway, fmt.Errorf("failed to fetch video")
	}

	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return "", fiber.StatusBadGateway, fmt.Errorf("failed to parse content type")
		}
		if !pmime.IsVideoMime(parsed) && parsed != fiber.MIMEOctetStream {
			logger.Error("invalid video mime type", zap.String("mime_type", parsed), zap.String("url", params.Url))
			return "", fiber.StatusUnsupportedMediaType, fmt.Errorf("content type '%s' is not a video", parsed)
		}
	}

	tmp, err := os.CreateTemp("", "pulse-fetch-*")
	if err != nil {
		return "", fiber.StatusInternalServerError, fmt.Errorf("failed to store video")
	}
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		os.Remove(tmp.Name())
		logger.Error("failed to write video", zap.Error(err))
		return "", fiber.StatusInternalServerError, fmt.Errorf("failed to store video")
	}

	return tmp.Name(), fiber.StatusOK, nil
}

//#endregion

//#region processVideoSignal

// processVideoSignal decodes the video at input, summarises the per-frame
// samples and archives the series when S3 is configured.
func processVideoSignal(c *fiber.Ctx, logger *zap.Logger, config *config.Config, counters *metrics.Metrics, perf *metrics.PerformanceMetrics, archive *storage.SignalArchive, params *validation.FrameContext, input, source string) error {
	ctx, span := otel.Tracer("routes").Start(c.UserContext(), "routes.processVideoSignal")
	defer span.End()

	id := params.CustomObjectKey
	if id == "" {
		id = uuid.New().String()
	}
	span.SetAttributes(
		attribute.String("series.id", id),
		attribute.String("series.source", source),
	)

	traceID := trace.SpanContextFromContext(ctx).TraceID().String()
	logger = logger.With(zap.String("trace_id", traceID), zap.String("series_id", id))

	done := metrics.TimeDecode(sourceVideo, perf)
	decoded, err := extractVideoSignal(ctx, logger, input, config.MaxVideoFrames)
	done()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		logger.Error("failed to extract video signal", zap.Error(err))
		counters.FramesRejected.WithLabelValues("decode").Inc()
		return c.Status(fiber.StatusUnprocessableEntity).SendString("failed to decode video")
	}

	perf.VideoFrames.Observe(float64(len(decoded.Samples)))
	counters.FramesProcessed.WithLabelValues(sourceVideo, ppg.LayoutNV21.String()).Add(float64(len(decoded.Samples)))
	for _, sample := range decoded.Samples {
		counters.ObserveFinger(sample.Finger)
	}

	series := &storage.Series{
		ID:         id,
		Source:     source,
		FPS:        decoded.FPS,
		Width:      decoded.Width,
		Height:     decoded.Height,
		Timestamps: decoded.Timestamps,
		Samples:    decoded.Samples,
		Summary:    ppg.Summarize(decoded.Samples),
	}
	span.SetAttributes(
		attribute.Int("series.frames", series.Summary.Frames),
		attribute.Int("series.finger_frames", series.Summary.FingerFrames),
	)

	archived := false
	if archive != nil {
		if err := archive.Put(ctx, id, series); err != nil {
			span.RecordError(err)
			logger.Error("failed to archive series", zap.Error(err))
			if params.CustomObjectKey != "" {
				return c.Status(fiber.StatusServiceUnavailable).SendString("failed to archive series")
			}
		} else {
			archived = true
		}
	}

	logger.Info("video signal extracted",
		zap.Int("frames", series.Summary.Frames),
		zap.Int("finger_frames", series.Summary.FingerFrames),
		zap.Float64("fps", series.FPS),
		zap.Bool("archived", archived),
		zap.Bool("truncated", decoded.Truncated))

	return c.JSON(videoResponse{Series: series, Archived: archived, Truncated: decoded.Truncated})
}

//#endregion

//#region handleArchiveRequest

func handleArchiveRequest(logger *zap.Logger, archive *storage.SignalArchive) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if archive == nil {
			return c.Status(fiber.StatusServiceUnavailable).SendString("signal archive unavailable")
		}

		id := strings.Trim(c.Params("*"), "/")
		if id == "" || strings.Contains(id, "..") {
			return c.Status(fiber.StatusBadRequest).SendString("invalid series id")
		}

		series, err := archive.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).SendString("series not found")
			}
			logger.Error("failed to read series", zap.Error(err), zap.String("series_id", id))
			return c.Status(fiber.StatusServiceUnavailable).SendString("failed to read series")
		}

		c.Set(fiber.HeaderCacheControl, "private, max-age=60")
		return c.JSON(series)
	}
}

//#endregion
