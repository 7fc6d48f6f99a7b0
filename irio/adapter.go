package irio

import "github.com/gogpu/shadercore/ir"

// Frontend parses irio documents. It satisfies shadercore.Frontend.
type Frontend struct{}

// Parse decodes source as a module document.
func (Frontend) Parse(source []byte) (*ir.Module, error) {
	return Unmarshal(source)
}

// Backend writes validated modules back out as irio documents. With Info
// set it emits the validation report instead of the module.
type Backend struct {
	Info bool
}

// Generate encodes module, or info when b.Info is set.
func (b Backend) Generate(module *ir.Module, info *ir.ModuleInfo) ([]byte, error) {
	if b.Info {
		return MarshalInfo(info)
	}
	return Marshal(module)
}
