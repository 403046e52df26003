package siteurl

import "testing"

func TestOrigin(t *testing.T) {
	tests := []struct {
		name     string
		location string
		want     string
	}{
		{name: "empty", location: "", want: DefaultOrigin},
		{name: "whitespace", location: "   ", want: DefaultOrigin},
		{name: "full url", location: "https://shop.example.com/some/path/", want: "https://shop.example.com"},
		{name: "full url http", location: "http://shop.example.com", want: "http://shop.example.com"},
		{name: "market token", location: "de", want: "https://de.shoplandia.com"},
		{name: "market token upper", location: "FR", want: "https://fr.shoplandia.com"},
		{name: "bare hostname", location: "outlet.shoplandia.com", want: "https://outlet.shoplandia.com"},
		{name: "garbage", location: "not a host", want: DefaultOrigin},
		{name: "scheme only", location: "https://", want: DefaultOrigin},
		{name: "numeric token", location: "12", want: DefaultOrigin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Origin(tt.location); got != tt.want {
				t.Fatalf("Origin(%q) = %q, want %q", tt.location, got, tt.want)
			}
		})
	}
}

func TestAbsolute(t *testing.T) {
	origin := "https://de.shoplandia.com"

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "relative", path: "/pr/widget/55", want: origin + "/pr/widget/55"},
		{name: "missing slash", path: "pr/widget/55", want: origin + "/pr/widget/55"},
		{name: "already absolute", path: "https://cdn.shoplandia.com/i.jpg", want: "https://cdn.shoplandia.com/i.jpg"},
		{name: "protocol relative", path: "//cdn.shoplandia.com/i.jpg", want: "https://cdn.shoplandia.com/i.jpg"},
		{name: "empty", path: "", want: origin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Absolute(origin, tt.path); got != tt.want {
				t.Fatalf("Absolute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsProductPath(t *testing.T) {
	if !IsProductPath("/pr/red-widget/5512") {
		t.Fatalf("product path should match")
	}
	if !IsProductPath("https://www.shoplandia.com/pr/red-widget/5512?ref=grid") {
		t.Fatalf("absolute product URL should match")
	}
	if IsProductPath("/catalog/widgets") {
		t.Fatalf("listing path should not match")
	}
	if IsProductPath("") {
		t.Fatalf("empty path should not match")
	}
}

func TestDetailURL(t *testing.T) {
	origin := DefaultOrigin
	if got := DetailURL(origin, "red-widget", "5512"); got != origin+"/pr/red-widget/5512" {
		t.Fatalf("DetailURL = %q", got)
	}
	if got := DetailURL(origin, "", "5512"); got != origin+"/pr/5512" {
		t.Fatalf("DetailURL id-only = %q", got)
	}
	if got := DetailURL(origin, "", ""); got != "" {
		t.Fatalf("DetailURL empty = %q, want empty", got)
	}
}
