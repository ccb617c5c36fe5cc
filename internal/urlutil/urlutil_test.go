package urlutil

import "testing"

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"http://example.com", true},
		{"https://example.com/a/b.css", true},
		{"//cdn.example.com/lib.js", true},
		{"ftp://files.example.com", true},
		{"/images/logo.png", false},
		{"images/logo.png", false},
		{"../style.css", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsURL(tt.in); got != tt.want {
			t.Errorf("IsURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"relative path", "http://example.com/a/page.html", "img/logo.png", "http://example.com/a/img/logo.png"},
		{"root relative", "http://example.com/a/page.html", "/style.css", "http://example.com/style.css"},
		{"parent directory", "http://example.com/a/b/page.html", "../x.css", "http://example.com/a/x.css"},
		{"absolute", "http://example.com/", "https://other.com/x.js", "https://other.com/x.js"},
		{"protocol relative keeps https", "https://example.com/", "//cdn.example.com/lib.js", "https://cdn.example.com/lib.js"},
		{"protocol relative keeps http", "http://example.com/", "//cdn.example.com/lib.js", "http://cdn.example.com/lib.js"},
		{"trims whitespace", "http://example.com/", "  /a.png ", "http://example.com/a.png"},
		{"bad base", "http://[::1", "/a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tt.base, tt.ref); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
			}
		})
	}
}

func TestKeyAndEqual(t *testing.T) {
	t.Parallel()

	t.Run("root variants are equal", func(t *testing.T) {
		t.Parallel()
		variants := []string{"http://x.com", "http://x.com/", "http://x.com?", "http://x.com/#", "HTTP://X.COM"}
		for _, v := range variants {
			if !Equal("http://x.com", v) {
				t.Errorf("expected %q to equal http://x.com (keys %q vs %q)", v, Key("http://x.com"), Key(v))
			}
		}
	})

	t.Run("trailing slash ignored on paths", func(t *testing.T) {
		t.Parallel()
		if !Equal("http://x.com/docs", "http://x.com/docs/") {
			t.Error("expected trailing slash to be ignored")
		}
	})

	t.Run("fragment ignored", func(t *testing.T) {
		t.Parallel()
		if !Equal("http://x.com/a.html#top", "http://x.com/a.html") {
			t.Error("expected fragment to be ignored")
		}
	})

	t.Run("query is significant", func(t *testing.T) {
		t.Parallel()
		if Equal("http://x.com/a?page=1", "http://x.com/a?page=2") {
			t.Error("expected different queries to differ")
		}
	})

	t.Run("path is significant", func(t *testing.T) {
		t.Parallel()
		if Equal("http://x.com/a", "http://x.com/b") {
			t.Error("expected different paths to differ")
		}
	})

	t.Run("scheme is significant", func(t *testing.T) {
		t.Parallel()
		if Equal("http://x.com/a", "https://x.com/a") {
			t.Error("expected different schemes to differ")
		}
	})
}

func TestNormalizeSeparators(t *testing.T) {
	t.Parallel()

	if got := NormalizeSeparators(`css\fonts\a.woff`); got != "css/fonts/a.woff" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestRelativePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from string
		to   string
		want string
	}{
		{"index.html", "style.css", "style.css"},
		{"index.html", "css/style.css", "css/style.css"},
		{"css/style.css", "img/bg.png", "../img/bg.png"},
		{"css/style.css", "css/other.css", "other.css"},
		{`css\style.css`, `fonts\a.woff`, "../fonts/a.woff"},
	}

	for _, tt := range tests {
		if got := RelativePath(tt.from, tt.to); got != tt.want {
			t.Errorf("RelativePath(%q, %q) = %q, want %q", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestFilenameFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"http://example.com/a/b/logo.png", "logo.png"},
		{"http://example.com/a/b/logo.png?v=2", "logo.png"},
		{"http://example.com/style.css#x", "style.css"},
		{"http://example.com/docs/", ""},
		{"http://example.com", ""},
		{"http://example.com/my%20file.txt", "my file.txt"},
	}

	for _, tt := range tests {
		if got := FilenameFromURL(tt.in); got != tt.want {
			t.Errorf("FilenameFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFragmentHelpers(t *testing.T) {
	t.Parallel()

	if got := Fragment("http://example.com/a.svg#icon"); got != "icon" {
		t.Errorf("Fragment = %q, want icon", got)
	}
	if got := Fragment("http://example.com/a.svg"); got != "" {
		t.Errorf("Fragment = %q, want empty", got)
	}
	if got := StripFragment("a.svg#icon"); got != "a.svg" {
		t.Errorf("StripFragment = %q, want a.svg", got)
	}
	if got := Extension("http://example.com/A.CSS?x=1"); got != ".css" {
		t.Errorf("Extension = %q, want .css", got)
	}
}

func TestIsFetchable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"/a.png", true},
		{"http://example.com", true},
		{"", false},
		{"   ", false},
		{"#top", false},
		{"javascript:void(0)", false},
		{"MAILTO:a@example.com", false},
		{"data:image/png;base64,AAAA", false},
		{"tel:+100", false},
	}

	for _, tt := range tests {
		if got := IsFetchable(tt.in); got != tt.want {
			t.Errorf("IsFetchable(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
