package id

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateMessageID() string {
	return g.generate("rm")
}

func (g *Generator) GenerateUnitID() string {
	return g.generate("rsu")
}

// GeneratePropositionID mints a UUID; proposition ids double as graph
// node keys and must stay provider-neutral.
func (g *Generator) GeneratePropositionID() string {
	return uuid.NewString()
}
