// Package relation implements the fixed, process-wide relation hierarchy
// consulted by the permission evaluator on every recursive step. The
// hierarchy is immutable after package init and safe for concurrent read.
package relation

// Level returns the hierarchy level for name, or 0 if name is unknown
// (treated as "lower than viewer").
func Level(name string) uint8 {
	return levels[name]
}

// CanAccess reports whether a held relation satisfies a required relation:
// level(held) >= level(required).
func CanAccess(held, required string) bool {
	return Level(held) >= Level(required)
}

// Implied returns the transitive closure of relations implied by name,
// including name itself at position 0. Unknown relations return just
// themselves.
func Implied(name string) []string {
	out := make([]string, 0, len(implies[name])+1)
	out = append(out, name)
	out = append(out, implies[name]...)
	return out
}

// IsValid reports whether name is one of the fixed hierarchy relations.
func IsValid(name string) bool {
	_, ok := levels[name]
	return ok
}

// Grantors returns every relation that, if held, implies name -- the
// strictly higher relations the evaluator must also try when a direct
// check on name fails (spec.md §4.5 step 2, "inherited edges"). This is
// the reverse of Implied: Implied(X) lists what X grants, Grantors(name)
// lists what grants name.
func Grantors(name string) []string {
	return grantors[name]
}

var grantors = computeGrantors()

func computeGrantors() map[string][]string {
	out := make(map[string][]string, len(implies))
	for holder, grants := range implies {
		for _, granted := range grants {
			out[granted] = append(out[granted], holder)
		}
	}
	return out
}

var levels = map[string]uint8{
	"viewer":    1,
	"commenter": 2,
	"editor":    3,
	"admin":     4,
	"owner":     5,
}

// implies holds, for each relation, every relation it strictly implies
// (excluding itself), ordered from closest to furthest in the hierarchy.
// This is the transitive closure of the fixed hierarchy
// viewer < commenter < editor < admin < owner.
var implies = map[string][]string{
	"viewer":    {},
	"commenter": {"viewer"},
	"editor":    {"commenter", "viewer"},
	"admin":     {"editor", "commenter", "viewer"},
	"owner":     {"admin", "editor", "commenter", "viewer"},
}
