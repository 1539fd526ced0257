package main

// Minimal GLSL source for the single primitive shader this smoke test
// drives (ps_rectangle). aData0/aData1 are opaque, shader-defined
// instance attributes the executor never interprets, so the demo's
// fragment stage just paints a flat color and ignores them.
const demoVertexSrc = `
in vec2 aPosition;
in ivec4 aData0;
in ivec4 aData1;

uniform mat4 uTransform;
uniform float uDevicePixelRatio;

void main() {
    vec2 pos = aPosition * vec2(200.0, 120.0) + vec2(100.0, 100.0);
    gl_Position = uTransform * vec4(pos * uDevicePixelRatio, 0.0, 1.0);
}
`

const demoFragmentSrc = `
out vec4 oFragColor;

void main() {
    oFragColor = vec4(0.85, 0.25, 0.2, 1.0);
}
`
