package policy

// SamplePolicy is the starter policy pack written by `sketchlint init`. It
// shows the two fact families most teams write rules over: the pin map and
// the memory estimate.
const SamplePolicy = `package sketch.policy

import rego.v1

# Fail the build on any pin with conflicting usages.
all_violations contains v if {
	some p in input.pins
	p.status == "conflict"
	v := {
		"rule": "no-pin-conflicts",
		"severity": "error",
		"line": p.line,
		"message": sprintf("pin %s has conflicting usages", [p.label]),
	}
}

# Keep some RAM headroom for the stack and the heap.
all_violations contains v if {
	input.memory.ram_percentage >= 80
	v := {
		"rule": "ram-headroom",
		"severity": "warning",
		"line": 0,
		"message": sprintf("RAM usage at %d%% leaves no headroom", [input.memory.ram_percentage]),
	}
}

summary := {
	"total_violations": count(all_violations),
	"errors": count([v | some v in all_violations; v.severity == "error"]),
	"warnings": count([v | some v in all_violations; v.severity == "warning"]),
	"info": count([v | some v in all_violations; v.severity == "info"]),
}
`
