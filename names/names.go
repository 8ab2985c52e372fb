package names

import "github.com/folkengine/goname"

// Generate returns a human-friendly pseudonym for a new entrant. The name
// carries no relation to the entrant's contact identifier.
func Generate() string {
	return goname.New(goname.FantasyMap).FirstLast()
}
