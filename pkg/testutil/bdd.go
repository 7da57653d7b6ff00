package testutil

import "testing"

// Given, When, Then and And name the steps of a scenario as subtests, so a
// failing step reads as "Given every counting circle is audited" in the output.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Given", desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "When", desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "Then", desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	step(t, "And", desc, fn)
}

// step stops the scenario once a step failed; later steps depend on its state.
func step(t *testing.T, keyword, desc string, fn func(t *testing.T)) {
	t.Helper()
	if t.Failed() {
		t.Skipf("%s %s: earlier step failed", keyword, desc)
	}
	if !t.Run(keyword+" "+desc, fn) {
		t.FailNow()
	}
}
