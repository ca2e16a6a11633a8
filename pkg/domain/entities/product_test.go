package entities

import "testing"

func TestParseProductKind(t *testing.T) {
	testCases := []struct {
		input    string
		expected ProductKind
		wantErr  bool
	}{
		{"article", KindArticle, false},
		{"Service", KindService, false},
		{" composite ", KindComposite, false},
		{"kit", "", true},
		{"", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			kind, err := ParseProductKind(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got kind %s", tc.input, kind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if kind != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, kind)
			}
		})
	}
}

func TestProductKind_Capabilities(t *testing.T) {
	if !KindComposite.CanHaveComponents() {
		t.Error("Expected composite products to accept components")
	}
	if KindArticle.CanHaveComponents() || KindService.CanHaveComponents() {
		t.Error("Expected only composite products to accept components")
	}
}

func TestProductNode_Label(t *testing.T) {
	testCases := []struct {
		product  ProductNode
		expected string
	}{
		{ProductNode{Code: "KIT-01", Name: "Wall kit"}, "KIT-01 Wall kit"},
		{ProductNode{Name: "Wall kit"}, "Wall kit"},
		{ProductNode{Code: "KIT-01"}, "KIT-01"},
	}

	for _, tc := range testCases {
		if got := tc.product.Label(); got != tc.expected {
			t.Errorf("Expected label %q, got %q", tc.expected, got)
		}
	}
}
