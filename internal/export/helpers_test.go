package export

import "math/rand"

func randSource() *rand.Rand { return rand.New(rand.NewSource(1)) }
