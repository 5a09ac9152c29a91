package frame

import "testing"

func TestAttributesDerivationDoesNotMutate(t *testing.T) {
	base := Attributes{
		Foreground: "#ffffff",
		Padding:    NewPadding(2, 3, 0, 0),
	}

	left := base.StripLeftPadding()
	right := base.StripRightPadding().WithBackground("#ff0000")

	if base.Padding.Left != 2 || base.Padding.Right != 3 || base.Background != "" {
		t.Fatalf("base attributes were modified: %+v", base)
	}
	if left.Padding.Left != 0 || left.Padding.Right != 3 {
		t.Errorf("StripLeftPadding = %+v, want left 0 right 3", left.Padding)
	}
	if right.Padding.Left != 2 || right.Padding.Right != 0 {
		t.Errorf("StripRightPadding = %+v, want left 2 right 0", right.Padding)
	}
	if right.Background != "#ff0000" {
		t.Errorf("Background = %q, want %q", right.Background, "#ff0000")
	}
}

func TestStylePadding(t *testing.T) {
	a := Attributes{Padding: NewPadding(1, 2, 0, 0)}
	got := a.Style().Render("x")
	if got != " x  " {
		t.Errorf("Render = %q, want %q", got, " x  ")
	}
}

func TestBatchTextAndClone(t *testing.T) {
	b := Batch{{Text: "ab"}, {Text: "cd"}}
	if got := b.Text(); got != "abcd" {
		t.Errorf("Text() = %q, want %q", got, "abcd")
	}

	c := b.Clone()
	c[0].Text = "zz"
	if b[0].Text != "ab" {
		t.Error("Clone shares backing array with original")
	}

	var empty Batch
	if empty.Clone() != nil {
		t.Error("Clone of nil batch should be nil")
	}
}

func TestSingle(t *testing.T) {
	b := Single(Attributes{Bold: true}, "hi", true)
	if len(b) != 1 {
		t.Fatalf("len = %d, want 1", len(b))
	}
	if !b[0].Markup || !b[0].Attr.Bold || b[0].Text != "hi" {
		t.Errorf("unexpected frame: %+v", b[0])
	}
}

func TestValidColor(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"#7C3AED", true},
		{"7c3aed", true},
		{"12", true},
		{"255", true},
		{"256", false},
		{"-1", false},
		{"#12345", false},
		{"#GGGGGG", false},
		{"red", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ValidColor(tt.in); got != tt.want {
				t.Errorf("ValidColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeColor(t *testing.T) {
	if got := NormalizeColor("ff5500"); got != "#ff5500" {
		t.Errorf("NormalizeColor = %q, want #ff5500", got)
	}
	if got := NormalizeColor("#ff5500"); got != "#ff5500" {
		t.Errorf("NormalizeColor = %q, want unchanged", got)
	}
	if got := NormalizeColor("123"); got != "123" {
		t.Errorf("NormalizeColor = %q, want unchanged ANSI index", got)
	}
}
