package util

import "testing"

func TestRedactSecrets(t *testing.T) {
	cases := map[string]string{
		"Authorization: Bearer abc.def":                  "Authorization: Bearer <redacted>",
		"using patAbCdEfGh123.0123456789abcdef for base": "using <redacted_pat> for base",
		"GET /api/sync/extensions?token=s3cret&x=1":      "GET /api/sync/extensions?token=<redacted>&x=1",
		"Airtable 404: Could not find table Local Hooks": "Airtable 404: Could not find table Local Hooks",
		"": "",
	}
	for in, want := range cases {
		if got := RedactSecrets(in); got != want {
			t.Fatalf("RedactSecrets(%q) = %q, want %q", in, got, want)
		}
	}
}
