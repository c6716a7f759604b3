package domain

// Preferences guarda la selección de modelo y plugins del usuario.
type Preferences struct {
	Model   string   `json:"model"`
	Plugins []string `json:"plugins"`
}

// Plugin describe una entrada del catálogo de plugins habilitables.
type Plugin struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}
