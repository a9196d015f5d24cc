package api

import (
	"fmt"
	"math/rand/v2"

	"github.com/jaevor/go-nanoid"
)

// usernameSuffixLength is the length of the random suffix appended to a
// generated username.
const usernameSuffixLength = 5

var animals = []string{
	"Panda", "Tiger", "Otter", "Falcon", "Koala",
	"Lynx", "Raven", "Fox", "Wolf", "Heron",
	"Badger", "Puffin", "Gecko", "Marten", "Ibis",
	"Wombat", "Stoat", "Osprey", "Civet", "Tapir",
}

// usernameGenerator produces throwaway display names like "Anonymous
// Otter-x7Kq2". Names carry no identity; the admission token does.
type usernameGenerator struct {
	newSuffix func() string
}

func newUsernameGenerator() (*usernameGenerator, error) {
	gen, err := nanoid.Standard(usernameSuffixLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create suffix generator: %w", err)
	}
	return &usernameGenerator{newSuffix: gen}, nil
}

func (g *usernameGenerator) Generate() string {
	animal := animals[rand.IntN(len(animals))]
	return fmt.Sprintf("Anonymous %s-%s", animal, g.newSuffix())
}
