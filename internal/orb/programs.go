package orb

// ProgramSource is a GPU program as GLSL text. Sources are NUL terminated for
// direct use with the GL bindings.
type ProgramSource struct {
	Name     string
	Vertex   string
	Fragment string
}

// Shared vertex stage: positions arrive already displaced; the shell scale is
// applied for the glow pass and is 1 for the surface pass.
const orbVertSrc = `#version 410 core

layout(location = 0) in vec3 aPosition;
layout(location = 1) in vec3 aNormal;

uniform mat4 uModel;
uniform mat4 uProjection;
uniform vec3 uCameraPos;
uniform float uShellScale;

out vec3 vNormal;
out vec3 vViewDir;

void main() {
    vec4 world = uModel * vec4(aPosition * uShellScale, 1.0);
    vNormal = mat3(uModel) * aNormal;
    vViewDir = uCameraPos - world.xyz;
    gl_Position = uProjection * vec4(world.xyz - uCameraPos, 1.0);
}
` + "\x00"

// Surface fragment stage: fresnel rim with audio-driven exponent and pulse.
const surfaceFragSrc = `#version 410 core

uniform vec3 uBaseColor;
uniform float uTime;
uniform float uAudioLevel;

in vec3 vNormal;
in vec3 vViewDir;
out vec4 FragColor;

float fresnelTerm(vec3 viewDir, vec3 normal, float power) {
    float nl = length(normal);
    float vl = length(viewDir);
    if (nl < 1e-6 || vl < 1e-6) {
        return 0.0;
    }
    float d = clamp(dot(viewDir / vl, normal / nl), -1.0, 1.0);
    return pow(1.0 - max(0.0, d), power);
}

void main() {
    float fresnel = fresnelTerm(vViewDir, vNormal, 2.0 + uAudioLevel * 2.0);
    float pulse = 0.8 + 0.2 * sin(uTime * 2.0);
    vec3 color = uBaseColor * fresnel * pulse * (1.0 + uAudioLevel * 0.8);
    float alpha = fresnel * (0.7 - uAudioLevel * 0.3);
    FragColor = vec4(color, alpha);
}
` + "\x00"

// Glow fragment stage: steeper fresnel, drawn with additive blending.
const glowFragSrc = `#version 410 core

uniform vec3 uBaseColor;
uniform float uAudioLevel;

in vec3 vNormal;
in vec3 vViewDir;
out vec4 FragColor;

void main() {
    float nl = length(vNormal);
    float vl = length(vViewDir);
    if (nl < 1e-6 || vl < 1e-6) {
        discard;
    }
    float d = clamp(dot(vViewDir / vl, vNormal / nl), -1.0, 1.0);
    float fresnel = pow(1.0 - max(0.0, d), 3.0 + uAudioLevel * 3.0);
    float intensity = fresnel * (1.0 + uAudioLevel);
    FragColor = vec4(uBaseColor * intensity, clamp(intensity, 0.0, 1.0));
}
` + "\x00"

// SurfaceProgram returns the outer wireframe-distortion program.
func SurfaceProgram() ProgramSource {
	return ProgramSource{
		Name:     "orb-surface",
		Vertex:   orbVertSrc,
		Fragment: surfaceFragSrc,
	}
}

// GlowProgram returns the glow shell program.
func GlowProgram() ProgramSource {
	return ProgramSource{
		Name:     "orb-glow",
		Vertex:   orbVertSrc,
		Fragment: glowFragSrc,
	}
}
