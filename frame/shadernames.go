package frame

// Shader name constants used to key the shader registry. These names
// are the wire contract between a caller-supplied ShaderSet and the
// frame executor's draw dispatch.
const (
	ShaderRectangle      = "ps_rectangle"
	ShaderLine           = "ps_line"
	ShaderTextRun        = "ps_text_run"
	ShaderTextRunSubpixel = "ps_text_run_subpixel"
	ShaderImage          = "ps_image"
	ShaderYUVImage       = "ps_yuv_image"
	ShaderBorderCorner   = "ps_border_corner"
	ShaderBorderEdge     = "ps_border_edge"
	ShaderGradient       = "ps_gradient"
	ShaderAngleGradient  = "ps_angle_gradient"
	ShaderRadialGradient = "ps_radial_gradient"
	ShaderBoxShadow      = "ps_box_shadow"
	ShaderCacheImage     = "ps_cache_image"
	ShaderBlend          = "ps_blend"
	ShaderComposite      = "ps_composite"
	ShaderHWComposite    = "ps_hw_composite"
	ShaderSplitComposite = "ps_split_composite"

	ShaderCacheBlur      = "cs_blur"
	ShaderCacheBoxShadow = "cs_box_shadow"
	ShaderCacheTextRun   = "cs_text_run"
	ShaderCacheLine      = "cs_line"

	ShaderClipBorder    = "cs_clip_border"
	ShaderClipRectangle = "cs_clip_rectangle"
	ShaderClipImage     = "cs_clip_image"
)

// primitiveShaderName maps an AlphaBatchKind (and, for text runs,
// whether the batch is subpixel) to the primitive shader name the
// registry compiles/binds.
func primitiveShaderName(b InstanceBatch) string {
	switch b.Kind {
	case BatchRectangle:
		return ShaderRectangle
	case BatchLine:
		return ShaderLine
	case BatchTextRun:
		if b.Subpixel != nil {
			return ShaderTextRunSubpixel
		}
		return ShaderTextRun
	case BatchImage:
		return ShaderImage
	case BatchYUVImage:
		return ShaderYUVImage
	case BatchBorderCorner:
		return ShaderBorderCorner
	case BatchBorderEdge:
		return ShaderBorderEdge
	case BatchGradient:
		return ShaderGradient
	case BatchAngleGradient:
		return ShaderAngleGradient
	case BatchRadialGradient:
		return ShaderRadialGradient
	case BatchBoxShadow:
		return ShaderBoxShadow
	case BatchCacheImage:
		return ShaderCacheImage
	case BatchBlend:
		return ShaderBlend
	case BatchComposite:
		return ShaderComposite
	case BatchHWComposite:
		return ShaderHWComposite
	case BatchSplitComposite:
		return ShaderSplitComposite
	default:
		return ShaderRectangle
	}
}
