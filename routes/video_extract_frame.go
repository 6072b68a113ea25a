package routes

import (
	"context"
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"go.uber.org/zap"

	"pulse-service/pool"
	"pulse-service/ppg"
)

// videoSignal is the decoded per-frame signal of one video.
type videoSignal struct {
	FPS        float64
	Width      int
	Height     int
	Timestamps []float64
	Samples    []ppg.Sample
	Truncated  bool
}

// extractVideoSignal decodes every video frame of input, scales it to NV21
// and extracts one sample per frame. At most maxFrames frames are read; zero
// means no limit.
func extractVideoSignal(ctx context.Context, logger *zap.Logger, input string, maxFrames int) (*videoSignal, error) {
	inputFormatContext := astiav.AllocFormatContext()
	if inputFormatContext == nil {
		return nil, fmt.Errorf("failed to allocate format context")
	}
	defer inputFormatContext.Free()

	formatOptions := astiav.NewDictionary()
	defer formatOptions.Free()

	// Phone recordings are often MOV with the index at the end.
	formatOptions.Set("analyzeduration", "100000000", 0)
	formatOptions.Set("probesize", "50000000", 0)

	if err := inputFormatContext.OpenInput(input, nil, formatOptions); err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer inputFormatContext.CloseInput()

	if err := inputFormatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("failed to find stream info: %w", err)
	}

	videoStreamIndex := -1
	var videoStream *astiav.Stream
	for _, stream := range inputFormatContext.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			videoStreamIndex = stream.Index()
			videoStream = stream
			break
		}
	}

	if videoStreamIndex == -1 {
		return nil, fmt.Errorf("no video stream found")
	}

	codec := astiav.FindDecoder(videoStream.CodecParameters().CodecID())
	if codec == nil {
		return nil, fmt.Errorf("failed to find decoder")
	}

	codecContext := astiav.AllocCodecContext(codec)
	if codecContext == nil {
		return nil, fmt.Errorf("failed to allocate codec context")
	}
	defer codecContext.Free()

	if err := codecContext.FromCodecParameters(videoStream.CodecParameters()); err != nil {
		return nil, fmt.Errorf("failed to copy codec parameters: %w", err)
	}

	if err := codecContext.Open(codec, nil); err != nil {
		return nil, fmt.Errorf("failed to open codec: %w", err)
	}

	packet := astiav.AllocPacket()
	defer packet.Free()

	frame := astiav.AllocFrame()
	defer frame.Free()

	result := &videoSignal{}
	if rate := videoStream.AvgFrameRate(); rate.Den() != 0 {
		result.FPS = float64(rate.Num()) / float64(rate.Den())
	}
	timeBase := videoStream.TimeBase()

	var scaler *frameScaler
	defer func() {
		if scaler != nil {
			scaler.Free()
		}
	}()
	var frames *pool.FramePool

	// handleFrame scales one decoded frame and appends its sample. The output
	// geometry is fixed by the first frame.
	handleFrame := func() error {
		if scaler == nil {
			width, height := frame.Width()&^1, frame.Height()&^1
			if width <= 0 || height <= 0 {
				return fmt.Errorf("invalid frame dimensions: %dx%d", frame.Width(), frame.Height())
			}

			var err error
			if scaler, err = newFrameScaler(logger, width, height); err != nil {
				return err
			}

			result.Width, result.Height = width, height
			frames = pool.NewFramePool(ppg.FrameLength(width, height))
		}

		scaledFrame, err := scaler.Scale(frame)
		if err != nil {
			return err
		}

		buf := frames.Get()
		defer frames.Put(buf)
		if err := frameToBuffer(scaledFrame, buf); err != nil {
			return err
		}

		sample, err := ppg.Extract(ppg.Frame{Data: buf, Width: result.Width, Height: result.Height, Layout: ppg.LayoutNV21})
		if err != nil {
			return err
		}

		result.Samples = append(result.Samples, sample)
		result.Timestamps = append(result.Timestamps, float64(frame.Pts())*float64(timeBase.Num())/float64(timeBase.Den()))
		return nil
	}

	// drain receives every frame the decoder has ready.
	drain := func() (bool, error) {
		for {
			if err := codecContext.ReceiveFrame(frame); err != nil {
				if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
					return false, nil
				}
				return false, fmt.Errorf("failed to receive frame: %w", err)
			}

			err := handleFrame()
			frame.Unref()
			if err != nil {
				return false, err
			}

			if maxFrames > 0 && len(result.Samples) >= maxFrames {
				result.Truncated = true
				return true, nil
			}
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if err := inputFormatContext.ReadFrame(packet); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				break
			}
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}

		if packet.StreamIndex() != videoStreamIndex {
			packet.Unref()
			continue
		}

		if err := codecContext.SendPacket(packet); err != nil {
			packet.Unref()
			return nil, fmt.Errorf("failed to send packet: %w", err)
		}
		packet.Unref()

		done, err := drain()
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
	}

	// Flush frames still buffered in the decoder.
	if err := codecContext.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		logger.Warn("failed to flush decoder", zap.Error(err))
	} else if _, err := drain(); err != nil {
		return nil, err
	}

	if len(result.Samples) == 0 {
		return nil, fmt.Errorf("no video frames found")
	}

	return result, nil
}

// scaleSource is the input geometry a scale context was built for.
type scaleSource struct {
	width       int
	height      int
	pixelFormat astiav.PixelFormat
}

// frameScaler converts decoded frames of any size or pixel format to NV21 at
// a fixed output size.
type frameScaler struct {
	logger *zap.Logger
	width  int
	height int

	source  scaleSource
	context *astiav.SoftwareScaleContext
	dst     *astiav.Frame
}

func newFrameScaler(logger *zap.Logger, width, height int) (*frameScaler, error) {
	dst := astiav.AllocFrame()
	dst.SetWidth(width)
	dst.SetHeight(height)
	dst.SetPixelFormat(astiav.PixelFormatNv21)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		return nil, fmt.Errorf("failed to allocate scaled frame: %w", err)
	}

	return &frameScaler{logger: logger, width: width, height: height, dst: dst}, nil
}

// Scale converts src into the scaler's NV21 frame. The scale context is
// rebuilt when the source size or pixel format changes mid-stream.
func (s *frameScaler) Scale(src *astiav.Frame) (*astiav.Frame, error) {
	source := scaleSource{width: src.Width(), height: src.Height(), pixelFormat: src.PixelFormat()}
	if s.context == nil || source != s.source {
		if s.context != nil {
			s.logger.Info("video frame format changed",
				zap.Int("width", source.width),
				zap.Int("height", source.height),
				zap.String("pixel_format", source.pixelFormat.String()))
			s.context.Free()
			s.context = nil
		}

		scaleContext, err := astiav.CreateSoftwareScaleContext(source.width, source.height, source.pixelFormat, s.width, s.height, astiav.PixelFormatNv21, astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear))
		if err != nil {
			return nil, fmt.Errorf("failed to create scale context: %w", err)
		}
		s.context = scaleContext
		s.source = source
	}

	if err := s.context.ScaleFrame(src, s.dst); err != nil {
		return nil, fmt.Errorf("failed to scale frame: %w", err)
	}
	return s.dst, nil
}

func (s *frameScaler) Free() {
	if s.context != nil {
		s.context.Free()
	}
	s.dst.Free()
}
