package keys

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected string
	}{
		{"forward slashes kept", "trip/paris.jpg", "trip/paris.jpg"},
		{"backslashes converted", `trip\sub\paris.jpg`, "trip/sub/paris.jpg"},
		{"dot prefix trimmed", "./trip/paris.jpg", "trip/paris.jpg"},
		{"leading slash trimmed", "/trip/paris.jpg", "trip/paris.jpg"},
		{"bare file", "paris.jpg", "paris.jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.expected {
				t.Fatalf("Normalize(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestPublicPath(t *testing.T) {
	cases := []struct {
		name     string
		prefix   string
		rel      string
		expected string
	}{
		{"default prefix", "/travel-photos", "trip/paris.jpg", "/travel-photos/trip/paris.jpg"},
		{"prefix without slashes", "travel-photos", "paris.jpg", "/travel-photos/paris.jpg"},
		{"trailing slash", "/travel-photos/", `trip\paris.jpg`, "/travel-photos/trip/paris.jpg"},
		{"empty prefix", "", "paris.jpg", "/paris.jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := PublicPath(tc.prefix, tc.rel); got != tc.expected {
				t.Fatalf("PublicPath(%q, %q) = %q; want %q", tc.prefix, tc.rel, got, tc.expected)
			}
		})
	}
}

func TestObject(t *testing.T) {
	cases := []struct {
		name     string
		prefix   string
		rel      string
		expected string
	}{
		{"with prefix", "travel-photos", "trip/paris.jpg", "travel-photos/trip/paris.jpg"},
		{"empty prefix", "", "data/photo-locations.json", "data/photo-locations.json"},
		{"slashy prefix", "/travel-photos/", "paris.jpg", "travel-photos/paris.jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Object(tc.prefix, tc.rel); got != tc.expected {
				t.Fatalf("Object(%q, %q) = %q; want %q", tc.prefix, tc.rel, got, tc.expected)
			}
		})
	}
}

func TestRelative(t *testing.T) {
	cases := []struct {
		name     string
		prefix   string
		public   string
		expected string
	}{
		{"default prefix", "/travel-photos", "/travel-photos/trip/paris.jpg", "trip/paris.jpg"},
		{"empty prefix", "", "/paris.jpg", "paris.jpg"},
		{"foreign prefix kept", "/travel-photos", "/other/paris.jpg", "other/paris.jpg"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Relative(tc.prefix, tc.public); got != tc.expected {
				t.Fatalf("Relative(%q, %q) = %q; want %q", tc.prefix, tc.public, got, tc.expected)
			}
			if tc.name != "foreign prefix kept" {
				if back := PublicPath(tc.prefix, tc.expected); back != tc.public {
					t.Fatalf("PublicPath(%q, %q) = %q; want %q", tc.prefix, tc.expected, back, tc.public)
				}
			}
		})
	}
}
