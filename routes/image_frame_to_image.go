package routes

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// frameToBuffer copies a scaled NV21 frame into dst without row padding.
func frameToBuffer(frame *astiav.Frame, dst []byte) error {
	if frame.Width() <= 0 || frame.Height() <= 0 {
		return fmt.Errorf("invalid frame dimensions: %dx%d", frame.Width(), frame.Height())
	}

	size, err := frame.ImageBufferSize(1)
	if err != nil {
		return fmt.Errorf("failed to get frame buffer size: %w", err)
	}
	if size != len(dst) {
		return fmt.Errorf("frame buffer size %d does not match %d", size, len(dst))
	}

	if _, err := frame.ImageCopyToBuffer(dst, 1); err != nil {
		return fmt.Errorf("failed to copy frame to buffer: %w", err)
	}

	return nil
}
