package tools

import "fmt"

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable Registry ready for use.
type RegistryBuilder struct {
	tools map[string]Tool
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]Tool)}
}

// WithTool adds a tool and returns the builder, enabling chaining.
// Registering the same name twice is a programming error and panics.
func (b *RegistryBuilder) WithTool(tool Tool) *RegistryBuilder {
	name := tool.Name()
	if _, dup := b.tools[name]; dup {
		panic(fmt.Sprintf("tools: duplicate tool %q", name))
	}
	b.tools[name] = tool

	return b
}

// WithTools adds several tools.
func (b *RegistryBuilder) WithTools(tools ...Tool) *RegistryBuilder {
	for _, t := range tools {
		b.WithTool(t)
	}
	return b
}

// Build produces an immutable Registry from the accumulated tools.
func (b *RegistryBuilder) Build() *Registry {
	tools := make(map[string]Tool, len(b.tools))
	for k, v := range b.tools {
		tools[k] = v
	}
	return &Registry{tools: tools}
}
