package relpath

import "testing"

func parentPanicFree(p Path, panicked *bool) (result Path) {
	defer func() {
		if recover() != nil {
			*panicked = true
		}
	}()
	return p.Parent()
}

func TestParent(t *testing.T) {
	testCases := []struct {
		path        Path
		expected    Path
		expectPanic bool
	}{
		{Root, Root, true},
		{"a", Root, false},
		{"a/b", "a", false},
		{"a/b/c", "a/b", false},
	}

	for _, testCase := range testCases {
		var panicked bool
		result := parentPanicFree(testCase.path, &panicked)
		if panicked != testCase.expectPanic {
			t.Errorf("Parent(%q) panic = %v, expected %v", testCase.path, panicked, testCase.expectPanic)
			continue
		}
		if !panicked && result != testCase.expected {
			t.Errorf("Parent(%q) = %q, expected %q", testCase.path, result, testCase.expected)
		}
	}
}

func TestLeaf(t *testing.T) {
	testCases := []struct {
		path     Path
		expected string
	}{
		{Root, ""},
		{"a", "a"},
		{"a/b", "b"},
		{"a/b/c", "c"},
	}

	for _, testCase := range testCases {
		if result := testCase.path.Leaf(); result != testCase.expected {
			t.Errorf("Leaf(%q) = %q, expected %q", testCase.path, result, testCase.expected)
		}
	}
}

func TestJoin(t *testing.T) {
	if Join(Root, "a") != "a" {
		t.Error("joining to root did not yield bare leaf")
	}
	if Join("a", "b") != "a/b" {
		t.Error("join did not concatenate with separator")
	}
}

func TestEqualCaseSensitive(t *testing.T) {
	if !Equal(CaseSensitive, "a/b", "a/b") {
		t.Error("identical paths should be equal")
	}
	if Equal(CaseSensitive, "a/B", "a/b") {
		t.Error("case-sensitive policy should distinguish case")
	}
}

func TestEqualCaseInsensitive(t *testing.T) {
	if !Equal(CaseInsensitive, "A/b", "a/B") {
		t.Error("case-insensitive policy should fold case")
	}
	if Equal(CaseInsensitive, "a/b", "a/bc") {
		t.Error("different component counts should not be equal")
	}
}

func TestLessOrdering(t *testing.T) {
	testCases := []struct {
		first, second Path
		expected      bool
	}{
		{Root, "a", true},
		{"a", Root, false},
		{"a", "a", false},
		{"a", "b", true},
		{"b", "a", false},
		{"a", "a/b", true},
		{"a/b", "a", false},
	}

	for _, testCase := range testCases {
		if result := Less(CaseSensitive, testCase.first, testCase.second); result != testCase.expected {
			t.Errorf("Less(%q, %q) = %v, expected %v", testCase.first, testCase.second, result, testCase.expected)
		}
	}
}

func TestLessCaseInsensitive(t *testing.T) {
	if Less(CaseInsensitive, "A", "a") {
		t.Error("equal-under-policy paths should not be less than one another")
	}
}
