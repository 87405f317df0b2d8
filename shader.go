package renderdev

import "fmt"

// Shader is a compiled shader program: fragment and vertex stages, the
// vertex input layout, and the declared constant block layout per stage.
type Shader struct {
	resourceState
	fragmentSource    []byte
	vertexSource      []byte
	vertexAttributes  []VertexAttribute
	fragmentConstants []ConstantInfo
	vertexConstants   []ConstantInfo
}

// newShader creates the logical shader at init-command execution time.
// Shaders are compiled eagerly by the executor; they carry no deferred
// upload, so they start clean.
func newShader(cmd *InitShaderCommand) *Shader {
	return &Shader{
		resourceState:     resourceState{handle: cmd.Shader},
		fragmentSource:    cmd.FragmentSource,
		vertexSource:      cmd.VertexSource,
		vertexAttributes:  cmd.VertexAttributes,
		fragmentConstants: cmd.FragmentConstants,
		vertexConstants:   cmd.VertexConstants,
	}
}

// FragmentSource returns the fragment stage source bytes.
func (s *Shader) FragmentSource() []byte { return s.fragmentSource }

// VertexSource returns the vertex stage source bytes.
func (s *Shader) VertexSource() []byte { return s.vertexSource }

// VertexAttributes returns the vertex input layout.
func (s *Shader) VertexAttributes() []VertexAttribute { return s.vertexAttributes }

// VertexStride returns the packed byte stride of one vertex.
func (s *Shader) VertexStride() uint32 {
	var stride uint32
	for _, a := range s.vertexAttributes {
		stride += a.Type.Bytes()
	}
	return stride
}

// FragmentConstants returns the fragment stage constant block declarations.
func (s *Shader) FragmentConstants() []ConstantInfo { return s.fragmentConstants }

// VertexConstants returns the vertex stage constant block declarations.
func (s *Shader) VertexConstants() []ConstantInfo { return s.vertexConstants }

// validateConstants checks one stage's supplied constant blocks against
// the declared layout. Every declared block must be present with exactly
// its declared byte size; no truncation or padding.
func validateConstants(stage string, declared []ConstantInfo, supplied [][]float32) error {
	if len(supplied) > len(declared) {
		return fmt.Errorf("%w: %s stage declares %d blocks, got %d",
			ErrConstantSizeMismatch, stage, len(declared), len(supplied))
	}
	for i, block := range supplied {
		got := uint32(len(block) * 4)
		if got != declared[i].Size {
			return fmt.Errorf("%w: %s block %q is %d bytes, declared %d",
				ErrConstantSizeMismatch, stage, declared[i].Name, got, declared[i].Size)
		}
	}
	return nil
}

func (s *Shader) upload(Executor) error { return nil }
