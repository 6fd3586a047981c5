package pathx

import "testing"

func TestParseBareKeyDefaultsNamespaceNone(t *testing.T) {
	p, err := Parse("name", SourceContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Namespace != NsNone {
		t.Fatalf("single segment should not infer a namespace, got %v", p.Namespace)
	}
	if len(p.Steps) != 1 || p.Steps[0].Key != "name" {
		t.Fatalf("steps = %+v", p.Steps)
	}
}

func TestParseNamespacedMultiSegment(t *testing.T) {
	p, err := Parse("input.items[0].id", RefContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Namespace != NsInput {
		t.Fatalf("namespace = %v, want input", p.Namespace)
	}
	want := []Step{{Kind: KeyStep, Key: "items"}, {Kind: IndexStep, Index: 0}, {Kind: KeyStep, Key: "id"}}
	if len(p.Steps) != len(want) {
		t.Fatalf("steps = %+v", p.Steps)
	}
	for i := range want {
		if p.Steps[i] != want[i] {
			t.Fatalf("step %d = %+v, want %+v", i, p.Steps[i], want[i])
		}
	}
}

func TestRefContextRequiresNamespace(t *testing.T) {
	if _, err := Parse("items", RefContext); err == nil {
		t.Fatalf("expected error for missing namespace in RefContext")
	}
}

func TestTargetContextForbidsIndices(t *testing.T) {
	if _, err := Parse("items[0]", TargetContext); err == nil {
		t.Fatalf("expected error for index step in TargetContext")
	}
	p, err := Parse("user.id", TargetContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Namespace != NsNone || len(p.Steps) != 2 {
		t.Fatalf("p = %+v", p)
	}
}

func TestParseBracketQuotedKey(t *testing.T) {
	p, err := Parse(`input["a.b"].c`, RefContext)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Steps) != 2 || p.Steps[0].Key != "a.b" || p.Steps[1].Key != "c" {
		t.Fatalf("steps = %+v", p.Steps)
	}
}

func TestParseEmptyPathRejected(t *testing.T) {
	if _, err := Parse("", SourceContext); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestParseTrailingDotRejected(t *testing.T) {
	if _, err := Parse("a.", SourceContext); err == nil {
		t.Fatalf("expected error for trailing dot")
	}
}
