package bind_group_provider

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
)

func TestNewBindGroupProvider(t *testing.T) {
	tests := []struct {
		name      string
		identity  shader.AnnotationArg
		opts      []BindGroupProviderOption
		wantLabel string
	}{
		{name: "label defaults to identity", identity: shader.AnnotationArgRays, wantLabel: "rays"},
		{name: "label override", identity: shader.AnnotationArgScene, opts: []BindGroupProviderOption{WithLabel("scene#2")}, wantLabel: "scene#2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewBindGroupProvider(tt.identity, tt.opts...)
			if got := p.Label(); got != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", got, tt.wantLabel)
			}
			if got := p.Identity(); got != tt.identity {
				t.Errorf("Identity() = %q, want %q", got, tt.identity)
			}
		})
	}
}

func TestEmptyProvider(t *testing.T) {
	p := NewBindGroupProvider(shader.AnnotationArgGBuffer)
	if p.Has(shader.AnnotationArgRolePosition) {
		t.Errorf("Has(position) = true, want false")
	}
	if _, ok := p.Entry(0, shader.AnnotationArgRolePosition); ok {
		t.Errorf("Entry(0, position) ok = true, want false")
	}
	if got := len(p.Roles()); got != 0 {
		t.Errorf("len(Roles()) = %d, want 0", got)
	}
	p.Release()
	if p.Buffer(shader.AnnotationArgRoleCounter) != nil {
		t.Errorf("Buffer(counter) after Release() = non-nil, want nil")
	}
}
