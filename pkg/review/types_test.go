package review

import "testing"

func TestParseSide(t *testing.T) {
	tests := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{in: "LEFT", want: SideLeft},
		{in: "RIGHT", want: SideRight},
		{in: " right ", want: SideRight},
		{in: "left", want: SideLeft},
		{in: "", wantErr: true},
		{in: "CENTER", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSide(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSide(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSide(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSideValid(t *testing.T) {
	if !SideLeft.Valid() || !SideRight.Valid() {
		t.Error("LEFT and RIGHT should be valid")
	}
	if Side("").Valid() {
		t.Error("empty side should not be valid")
	}
}

func TestPullRequestString(t *testing.T) {
	pr := PullRequest{Owner: "nishtahir", Repo: "conventional-gpt", Number: 1}

	if got := pr.String(); got != "nishtahir/conventional-gpt#1" {
		t.Errorf("String() = %q", got)
	}
	if got := pr.FullName(); got != "nishtahir/conventional-gpt" {
		t.Errorf("FullName() = %q", got)
	}
}

func TestCommentString(t *testing.T) {
	c := Comment{Body: "x", Path: "src/main.ts", Line: 12, Side: SideRight}
	if got := c.String(); got != "src/main.ts:12 (RIGHT)" {
		t.Errorf("String() = %q", got)
	}
}
