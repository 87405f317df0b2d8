package renderdev

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Texture is a 2D or cube texture plus its sampler parameters. Level data
// and sampler state are tracked dirty independently so a parameter change
// does not force a re-upload of pixel data.
type Texture struct {
	resourceState
	levels        []TextureLevel
	textureType   TextureType
	flags         ResourceFlags
	sampleCount   uint32
	pixelFormat   PixelFormat
	filter        SamplerFilter
	addressX      SamplerAddressMode
	addressY      SamplerAddressMode
	addressZ      SamplerAddressMode
	maxAnisotropy uint32
	samplerDirty  bool
}

// newTexture creates the logical texture at init-command execution time.
// Textures start dirty so the first consuming draw uploads the level data.
func newTexture(cmd *InitTextureCommand) *Texture {
	t := &Texture{
		resourceState: resourceState{handle: cmd.Texture},
		levels:        cmd.Levels,
		textureType:   cmd.TextureType,
		flags:         cmd.Flags,
		sampleCount:   cmd.SampleCount,
		pixelFormat:   cmd.PixelFormat,
		filter:        cmd.Filter,
		maxAnisotropy: cmd.MaxAnisotropy,
		samplerDirty:  true,
	}
	t.markDirty()
	return t
}

// Levels returns the current per-level data, base level first. Callers
// must not mutate the returned slice.
func (t *Texture) Levels() []TextureLevel { return t.levels }

// Width returns the base level width, or 0 for a texture with no levels.
func (t *Texture) Width() uint32 {
	if len(t.levels) == 0 {
		return 0
	}
	return t.levels[0].Width
}

// Height returns the base level height, or 0 for a texture with no levels.
func (t *Texture) Height() uint32 {
	if len(t.levels) == 0 {
		return 0
	}
	return t.levels[0].Height
}

// TextureType returns the texture's dimensionality.
func (t *Texture) TextureType() TextureType { return t.textureType }

// Flags returns the creation flags.
func (t *Texture) Flags() ResourceFlags { return t.flags }

// SampleCount returns the MSAA sample count.
func (t *Texture) SampleCount() uint32 { return t.sampleCount }

// PixelFormat returns the storage format.
func (t *Texture) PixelFormat() PixelFormat { return t.pixelFormat }

// Filter returns the sampler filter.
func (t *Texture) Filter() SamplerFilter { return t.filter }

// AddressModes returns the wrap modes for the three texture axes.
func (t *Texture) AddressModes() (x, y, z SamplerAddressMode) {
	return t.addressX, t.addressY, t.addressZ
}

// MaxAnisotropy returns the anisotropic filtering cap. Zero means the
// backend default.
func (t *Texture) MaxAnisotropy() uint32 { return t.maxAnisotropy }

// setData replaces the level data and marks the texture dirty.
// Render goroutine only, via SetTextureDataCommand.
func (t *Texture) setData(levels []TextureLevel) {
	t.levels = levels
	t.markDirty()
}

// setParameters updates the sampler state. Render goroutine only, via
// SetTextureParametersCommand.
func (t *Texture) setParameters(cmd *SetTextureParametersCommand) {
	t.filter = cmd.Filter
	t.addressX = cmd.AddressX
	t.addressY = cmd.AddressY
	t.addressZ = cmd.AddressZ
	t.maxAnisotropy = cmd.MaxAnisotropy
	t.samplerDirty = true
	t.markDirty()
}

func (t *Texture) upload(exec Executor) error {
	if err := exec.UploadTexture(t); err != nil {
		return fmt.Errorf("upload texture %d: %w", t.handle, err)
	}
	if t.samplerDirty {
		if err := exec.SetTextureSampler(t); err != nil {
			return fmt.Errorf("set sampler for texture %d: %w", t.handle, err)
		}
		t.samplerDirty = false
	}
	t.clearDirty()
	return nil
}

// generateMipLevels extends a single-level RGBA8 image into a full mip
// chain, downscaling each level by half with bilinear filtering until 1x1.
// Only 8-bit RGBA formats are supported for CPU generation; other formats
// must supply their chains explicitly.
func generateMipLevels(base TextureLevel, format PixelFormat) ([]TextureLevel, error) {
	switch format {
	case PixelFormatRGBA8Unorm, PixelFormatRGBA8UnormSRGB:
	default:
		return nil, fmt.Errorf("%w: cannot generate mip levels for %s", ErrUnsupportedFormat, format)
	}
	if base.Width == 0 || base.Height == 0 {
		return nil, fmt.Errorf("%w: zero base level dimensions", ErrUnsupportedFormat)
	}
	if want := int(base.Width) * int(base.Height) * 4; len(base.Data) < want {
		return nil, fmt.Errorf("renderdev: base level holds %d bytes, need %d", len(base.Data), want)
	}

	levels := []TextureLevel{base}
	src := &image.RGBA{
		Pix:    base.Data,
		Stride: int(base.Width) * 4,
		Rect:   image.Rect(0, 0, int(base.Width), int(base.Height)),
	}
	w, h := base.Width, base.Height
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		dst := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
		draw.BiLinear.Scale(dst, dst.Rect, src, src.Bounds(), draw.Src, nil)
		levels = append(levels, TextureLevel{Width: w, Height: h, Data: dst.Pix})
		src = dst
	}
	return levels, nil
}
