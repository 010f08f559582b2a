package persona

// Store exposes persona retrieval for HTTP handlers and session setup.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns a copy of the persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up a persona by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Persona{}, false
}

// Overrides 配置层的覆盖项；nil 表示不覆盖，零值是合法的覆盖值。
type Overrides struct {
	Model           string
	Temperature     *float32
	TopP            *float32
	TopK            *int32
	MaxOutputTokens *int32
}

// Override returns a copy of p with the set overrides applied. Used by
// configuration to swap the model or sampling parameters.
func Override(p Persona, o Overrides) Persona {
	if o.Model != "" {
		p.Model = o.Model
	}
	if o.Temperature != nil {
		p.Generation.Temperature = *o.Temperature
	}
	if o.TopP != nil {
		p.Generation.TopP = *o.TopP
	}
	if o.TopK != nil {
		p.Generation.TopK = *o.TopK
	}
	if o.MaxOutputTokens != nil {
		p.Generation.MaxOutputTokens = *o.MaxOutputTokens
	}
	return p
}
