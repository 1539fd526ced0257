package glapi

// Enum mirrors the numeric GL enum space. Values are the standard OpenGL
// constants so glreal's implementation can pass them straight through to
// go-gl/gl without a translation table, and glmock (which never links
// against a real GL context) can still exercise identical call shapes in
// unit tests.
type Enum uint32

// Texture targets.
const (
	TEXTURE_2D       Enum = 0x0DE1
	TEXTURE_2D_ARRAY Enum = 0x8C1A
	TEXTURE_RECTANGLE Enum = 0x84F5
)

// Texture parameters.
const (
	TEXTURE_MIN_FILTER Enum = 0x2801
	TEXTURE_MAG_FILTER Enum = 0x2800
	TEXTURE_WRAP_S     Enum = 0x2802
	TEXTURE_WRAP_T     Enum = 0x2803
	NEAREST            Enum = 0x2600
	LINEAR             Enum = 0x2601
	CLAMP_TO_EDGE      Enum = 0x812F
)

// Pixel formats / internal formats.
const (
	RED             Enum = 0x1903
	ALPHA           Enum = 0x1906
	RG              Enum = 0x8227
	RGB             Enum = 0x1907
	RGBA            Enum = 0x1908
	BGRA            Enum = 0x80E1
	BGRA_EXT        Enum = 0x80E1
	R8               Enum = 0x8229
	RG8              Enum = 0x822B
	RGB8             Enum = 0x8051
	RGBA8            Enum = 0x8058
	RGBA32F          Enum = 0x8814
	UNSIGNED_BYTE    Enum = 0x1401
	FLOAT            Enum = 0x1406
	UNSIGNED_SHORT   Enum = 0x1403
	UNSIGNED_INT     Enum = 0x1405
	SHORT            Enum = 0x1402
	INT              Enum = 0x1404
	BYTE             Enum = 0x1400
)

// Buffers / framebuffers.
const (
	ARRAY_BUFFER         Enum = 0x8892
	ELEMENT_ARRAY_BUFFER Enum = 0x8893
	PIXEL_UNPACK_BUFFER  Enum = 0x88EC
	STATIC_DRAW          Enum = 0x88E4
	DYNAMIC_DRAW         Enum = 0x88E8
	STREAM_DRAW          Enum = 0x88E0

	FRAMEBUFFER      Enum = 0x8D40
	READ_FRAMEBUFFER Enum = 0x8CA8
	DRAW_FRAMEBUFFER Enum = 0x8CA9
	RENDERBUFFER     Enum = 0x8D41

	COLOR_ATTACHMENT0   Enum = 0x8CE0
	DEPTH_ATTACHMENT    Enum = 0x8D00
	DEPTH_COMPONENT24   Enum = 0x81A6

	COLOR_BUFFER_BIT Enum = 0x4000
	DEPTH_BUFFER_BIT Enum = 0x0100
)

// Draw primitives.
const (
	TRIANGLES Enum = 0x0004
	LINES     Enum = 0x0001
)

// Capability toggles.
const (
	DEPTH_TEST Enum = 0x0B71
	STENCIL_TEST Enum = 0x0B90
	SCISSOR_TEST Enum = 0x0C11
	BLEND        Enum = 0x0BE2
)

// Depth functions.
const (
	LESS       Enum = 0x0201
	LEQUAL     Enum = 0x0203
)

// Blend factors / equations.
const (
	ZERO                Enum = 0
	ONE                 Enum = 1
	SRC_ALPHA           Enum = 0x0302
	ONE_MINUS_SRC_ALPHA Enum = 0x0303
	ONE_MINUS_SRC_COLOR Enum = 0x0301
	CONSTANT_COLOR      Enum = 0x8001
	DST_COLOR           Enum = 0x0306

	FUNC_ADD      Enum = 0x8006
	FUNC_MAX      Enum = 0x8008
	FUNC_MIN      Enum = 0x8007
)

// Shader stages and status queries.
const (
	VERTEX_SHADER   Enum = 0x8B31
	FRAGMENT_SHADER Enum = 0x8B30

	COMPILE_STATUS Enum = 0x8B81
	LINK_STATUS    Enum = 0x8B82
	INFO_LOG_LENGTH Enum = 0x8B84
)

// Misc.
const (
	UNPACK_ALIGNMENT Enum = 0x0CF5
	MAX_TEXTURE_SIZE Enum = 0x0D33
)
