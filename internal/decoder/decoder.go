// Package decoder normalizes chat message content into text, image and
// audio payloads, enforcing the request-side size and count limits.
package decoder

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rs/zerolog"

	"inferd/pkg/types"
)

// Limits applied while decoding. URL and media caps are hard failures;
// dimension and count overruns on individual images are skipped.
const (
	MaxURLChars   = 10_000_000
	MaxMediaBytes = 50_000_000
	MaxImages     = 10
	MaxImageDim   = 8192
)

const base64Scheme = "base64://"

// Image is one decoded raster payload. Data holds the raw decoded bytes so
// identical data:/base64:// payloads stay byte-identical.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// Content is the normalized decode result: concatenated text, ordered
// images, and at most one audio clip.
type Content struct {
	Text   string
	Images []Image
	Audio  []byte
}

// Empty reports whether the result carries nothing usable.
func (c Content) Empty() bool {
	return strings.TrimSpace(c.Text) == "" && len(c.Images) == 0 && len(c.Audio) == 0
}

// invalidContentError marks caller errors so the router maps them to
// 400 invalid_request rather than a server fault.
type invalidContentError struct{ msg string }

func (e invalidContentError) Error() string   { return e.msg }
func (e invalidContentError) StatusCode() int { return http.StatusBadRequest }
func (e invalidContentError) Kind() string    { return "invalid_request" }

func errInvalid(format string, args ...any) error {
	return invalidContentError{msg: fmt.Sprintf(format, args...)}
}

// IsInvalidContent reports whether err is a content-shape caller error.
func IsInvalidContent(err error) bool {
	_, ok := err.(invalidContentError)
	return ok
}

// Decoder turns request messages into normalized content. It is stateless
// per call; the logger is used for soft-skip warnings only.
type Decoder struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Decoder {
	return &Decoder{log: log}
}

// DecodeMessages decodes the last message with role "user". Soft policy
// violations (foreign schemes, malformed or oversized-dimension images,
// unknown part types) are skipped with a warning; explicit size and count
// violations fail the whole request.
func (d *Decoder) DecodeMessages(msgs []types.ChatMessage) (Content, error) {
	var user *types.ChatMessage
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			user = &msgs[i]
			break
		}
	}
	if user == nil {
		return Content{}, errInvalid("no user message found")
	}

	var out Content
	switch user.Content.Kind {
	case types.ContentText:
		out.Text = strings.TrimSpace(user.Content.Text)
	case types.ContentParts:
		if len(user.Content.Parts) == 0 {
			return Content{}, errInvalid("content parts must not be empty")
		}
		if err := d.decodeParts(user.Content.Parts, &out); err != nil {
			return Content{}, err
		}
	}

	if out.Empty() {
		return Content{}, errInvalid("empty content")
	}
	return out, nil
}

func (d *Decoder) decodeParts(parts []types.ContentPart, out *Content) error {
	var fragments []string
	for _, p := range parts {
		switch p.Type {
		case types.PartText:
			if strings.TrimSpace(p.Text) != "" {
				fragments = append(fragments, p.Text)
			}
		case types.PartImageURL:
			if p.ImageURL == nil {
				d.log.Warn().Msg("image_url part missing url, skipping")
				continue
			}
			img, skip, err := d.decodeImage(p.ImageURL.URL)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			if len(out.Images) >= MaxImages {
				return errInvalid("too many images (max %d)", MaxImages)
			}
			out.Images = append(out.Images, img)
		case types.PartAudioURL:
			if p.AudioURL == nil {
				d.log.Warn().Msg("audio_url part missing url, skipping")
				continue
			}
			clip, skip, err := d.decodeAudio(p.AudioURL.URL)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			// Last clip wins; multiple audio parts are tolerated.
			out.Audio = clip
		default:
			d.log.Warn().Str("type", p.Type).Msg("unknown content part type, skipping")
		}
	}
	out.Text = strings.Join(fragments, "\n")
	return nil
}

// decodeImage returns (image, skip, err). skip=true means the part was
// dropped under the soft-skip policy; err is a hard request failure.
func (d *Decoder) decodeImage(url string) (Image, bool, error) {
	raw, skip, err := d.decodePayload(url, "image")
	if skip || err != nil {
		return Image{}, skip, err
	}
	cfg, format, cfgErr := image.DecodeConfig(bytes.NewReader(raw))
	if cfgErr != nil {
		d.log.Warn().Err(cfgErr).Msg("malformed image payload, skipping")
		return Image{}, true, nil
	}
	if cfg.Width > MaxImageDim || cfg.Height > MaxImageDim {
		d.log.Warn().
			Int("width", cfg.Width).
			Int("height", cfg.Height).
			Msg("image dimensions exceed limit, skipping")
		return Image{}, true, nil
	}
	return Image{Data: raw, Width: cfg.Width, Height: cfg.Height, Format: format}, false, nil
}

func (d *Decoder) decodeAudio(url string) ([]byte, bool, error) {
	return d.decodePayload(url, "audio")
}

// decodePayload applies the shared URL-length cap, scheme extraction and
// base64 decode. The media byte cap is a hard failure for both kinds.
func (d *Decoder) decodePayload(url, kind string) ([]byte, bool, error) {
	if len(url) > MaxURLChars {
		return nil, false, errInvalid("%s url exceeds %d characters", kind, MaxURLChars)
	}
	payload, ok := payloadFromURL(url)
	if !ok {
		d.log.Warn().Str("kind", kind).Msg("unsupported media url scheme, skipping")
		return nil, true, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		d.log.Warn().Str("kind", kind).Err(err).Msg("invalid base64 payload, skipping")
		return nil, true, nil
	}
	if len(raw) == 0 {
		d.log.Warn().Str("kind", kind).Msg("empty media payload, skipping")
		return nil, true, nil
	}
	if len(raw) > MaxMediaBytes {
		return nil, false, errInvalid("%s payload exceeds %d bytes", kind, MaxMediaBytes)
	}
	return raw, false, nil
}

// payloadFromURL extracts the base64 payload from a data: or base64:// url.
func payloadFromURL(url string) (string, bool) {
	switch {
	case strings.HasPrefix(url, "data:"):
		i := strings.IndexByte(url, ',')
		if i < 0 {
			return "", false
		}
		return url[i+1:], true
	case strings.HasPrefix(url, base64Scheme):
		return url[len(base64Scheme):], true
	default:
		return "", false
	}
}
