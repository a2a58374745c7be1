package tray

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"runtime"
)

const iconSize = 32

var (
	frameColor = color.RGBA{R: 0x00, G: 0x78, B: 0xd4, A: 0xff}
	lensColor  = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}
)

// renderIcon draws a dashed selection frame around a small lens.
func renderIcon() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, iconSize, iconSize))
	const lo, hi = 3, iconSize - 4
	for i := lo; i <= hi; i++ {
		if ((i-lo)/3)%2 == 1 {
			continue
		}
		for w := 0; w < 2; w++ {
			img.SetRGBA(i, lo+w, frameColor)
			img.SetRGBA(i, hi-w, frameColor)
			img.SetRGBA(lo+w, i, frameColor)
			img.SetRGBA(hi-w, i, frameColor)
		}
	}
	c := iconSize / 2
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			d := (x-c)*(x-c) + (y-c)*(y-c)
			if (d >= 16 && d <= 36) || d <= 4 {
				img.SetRGBA(x, y, lensColor)
			}
		}
	}
	return img
}

// Icon returns the tray icon in the container the platform tray expects:
// ICO on Windows, PNG elsewhere.
func Icon() []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, renderIcon()); err != nil {
		return nil
	}
	if runtime.GOOS == "windows" {
		return wrapICO(buf.Bytes(), iconSize)
	}
	return buf.Bytes()
}

// wrapICO embeds one PNG image in an ICO container.
func wrapICO(pngData []byte, size int) []byte {
	var buf bytes.Buffer
	dim := byte(size)
	if size >= 256 {
		dim = 0
	}
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Reserved, Type, Count uint16
	}{0, 1, 1})
	_ = binary.Write(&buf, binary.LittleEndian, struct {
		Width, Height, Colors, Reserved byte
		Planes, BitCount                uint16
		Size, Offset                    uint32
	}{dim, dim, 0, 0, 1, 32, uint32(len(pngData)), 22})
	buf.Write(pngData)
	return buf.Bytes()
}
