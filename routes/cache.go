package routes

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"pulse-service/validation"
)

type CacheValue struct {
	Body        []byte
	ContentType string
}

const (
	cachePlaceResponseHandler = "response-handler"
	cacheCost                 = 1000
	layoutAuto                = "auto"
)

// cacheKey identifies a result by its source (URL or body digest) and every
// parameter that changes the output.
func cacheKey(kind, source string, params *validation.FrameContext) string {
	var builder strings.Builder
	builder.WriteString(kind)
	builder.WriteString(";")
	builder.WriteString(source)
	builder.WriteString(";w=")
	builder.WriteString(strconv.Itoa(params.Width))
	builder.WriteString(";h=")
	builder.WriteString(strconv.Itoa(params.Height))
	builder.WriteString(";fmt=")
	if params.LayoutFixed {
		builder.WriteString(params.Layout.String())
	} else {
		// A fetched frame may still pick its layout from the remote Content-Type.
		builder.WriteString(layoutAuto)
	}
	if kind == kindPreview {
		builder.WriteString(";quality=")
		builder.WriteString(strconv.Itoa(params.Quality))
		builder.WriteString(";rw=")
		builder.WriteString(strconv.Itoa(params.ResizeWidth))
		builder.WriteString(";rh=")
		builder.WriteString(strconv.Itoa(params.ResizeHeight))
		builder.WriteString(";scale=")
		builder.WriteString(strconv.FormatFloat(params.Scale, 'f', -1, 64))
		builder.WriteString(";interpolation=")
		builder.WriteString(strconv.Itoa(int(params.Interpolation)))
		builder.WriteString(";webp=")
		builder.WriteString(strconv.FormatBool(params.Webp))
	}
	return builder.String()
}

// bodyDigest names an uploaded body for cache keys.
func bodyDigest(body []byte) string {
	sum := sha256.Sum256(body)
	return "sha256:" + hex.EncodeToString(sum[:])
}
