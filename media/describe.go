package media

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tsawler/deckmerge/opc"
)

// Info summarises one binary asset.
type Info struct {
	Name        string `yaml:"name"`
	ContentType string `yaml:"contentType"`
	Size        int    `yaml:"size"`
	Width       int    `yaml:"width,omitempty"`
	Height      int    `yaml:"height,omitempty"`
}

// Describe reports size and, for raster images in a decodable format, pixel
// dimensions. Undecodable images and non-image assets report size only.
func Describe(part *opc.Part) Info {
	info := Info{
		Name:        part.Name,
		ContentType: part.ContentType,
		Size:        len(part.Data()),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(part.Data())); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info
}
