package manifest

import "fmt"

// Warning kinds reported by Validate.
const (
	WarnDuplicate      = "duplicate"
	WarnRevertNotApply = "revert-not-in-apply"
	WarnApplyNotRevert = "apply-not-in-revert"
)

// Warning describes a suspicious but legal manifest entry.
type Warning struct {
	Kind    string
	Unit    string
	Message string
}

func (w Warning) String() string { return w.Message }

// Validate inspects the manifest for likely operator mistakes. It never
// changes the parsed lists: duplicates are still processed in order and the
// idempotency guard reports the repeats.
func (m *Manifest) Validate() []Warning {
	var warnings []Warning

	warnings = append(warnings, duplicates("apply", m.Apply)...)
	warnings = append(warnings, duplicates("revert", m.Revert)...)

	applySet := toSet(m.Apply)
	revertSet := toSet(m.Revert)

	for _, name := range unique(m.Revert) {
		if !applySet[name] {
			warnings = append(warnings, Warning{
				Kind:    WarnRevertNotApply,
				Unit:    name,
				Message: fmt.Sprintf("unit %q is listed for revert but not for apply", name),
			})
		}
	}

	for _, name := range unique(m.Apply) {
		if !revertSet[name] {
			warnings = append(warnings, Warning{
				Kind:    WarnApplyNotRevert,
				Unit:    name,
				Message: fmt.Sprintf("unit %q is listed for apply but has no revert entry", name),
			})
		}
	}

	return warnings
}

func duplicates(section string, names []string) []Warning {
	var warnings []Warning

	seen := make(map[string]int, len(names))

	for _, name := range names {
		seen[name]++
		if seen[name] == 2 {
			warnings = append(warnings, Warning{
				Kind:    WarnDuplicate,
				Unit:    name,
				Message: fmt.Sprintf("unit %q appears more than once in the %s section", name, section),
			})
		}
	}

	return warnings
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}

	return set
}

// unique keeps first occurrences in order.
func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))

	for _, n := range names {
		if seen[n] {
			continue
		}

		seen[n] = true
		out = append(out, n)
	}

	return out
}
