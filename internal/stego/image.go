package stego

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// DecodePNG decodes a PNG into its raw NRGBA byte plane. PNG is the only
// supported cover format: LSB embedding needs a lossless container.
func DecodePNG(data []byte) (*image.NRGBA, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode cover image: %w", err)
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba, nil
	}

	bounds := img.Bounds()
	nrgba := image.NewNRGBA(bounds)
	draw.Draw(nrgba, bounds, img, bounds.Min, draw.Src)
	return nrgba, nil
}

// EncodePNG serializes an NRGBA plane back to PNG bytes
func EncodePNG(img *image.NRGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode stego image: %w", err)
	}
	return buf.Bytes(), nil
}

// Encode seals image+metadata under key and embeds the result in a PNG
// cover, returning the stego PNG.
func Encode(coverPNG []byte, imageData []byte, meta Metadata, key [32]byte) ([]byte, error) {
	sealed, err := Seal(imageData, meta, key)
	if err != nil {
		return nil, err
	}

	cover, err := DecodePNG(coverPNG)
	if err != nil {
		return nil, err
	}

	if _, err := Embed(cover.Pix, sealed); err != nil {
		return nil, err
	}

	return EncodePNG(cover)
}

// Decode extracts and opens the payload hidden in a stego PNG
func Decode(stegoPNG []byte, key [32]byte) ([]byte, Metadata, error) {
	carrier, err := DecodePNG(stegoPNG)
	if err != nil {
		return nil, Metadata{}, err
	}

	sealed, err := Extract(carrier.Pix)
	if err != nil {
		return nil, Metadata{}, err
	}

	return Open(sealed, key)
}
