package parser

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "plain", input: "9.99", want: "9.99", ok: true},
		{name: "currency prefix", input: "$ 1,299.00", want: "1299.00", ok: true},
		{name: "european", input: "1.299,00 EUR", want: "1299.00", ok: true},
		{name: "comma decimal", input: "12,50", want: "12.50", ok: true},
		{name: "grouped only", input: "1,299,000", want: "1299000", ok: true},
		{name: "single grouped comma", input: "1,299", want: "1299", ok: true},
		{name: "single grouped dot", input: "1.299 EUR", want: "1299", ok: true},
		{name: "two decimals keep decimal", input: "1,29", want: "1.29", ok: true},
		{name: "embedded", input: "from 24.90 per unit", want: "24.90", ok: true},
		{name: "no digits", input: "price on request", want: "", ok: false},
		{name: "empty", input: "", want: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("ParsePrice(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "24.90 EUR", want: "EUR"},
		{input: "usd 10", want: "USD"},
		{input: "$9.99", want: "USD"},
		{input: "£5", want: "GBP"},
		{input: "9.99", want: ""},
	}

	for _, tt := range tests {
		if got := ParseCurrency(tt.input); got != tt.want {
			t.Fatalf("ParseCurrency(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeAvailability(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "http://schema.org/InStock", want: "InStock"},
		{input: "schema/InStock", want: "InStock"},
		{input: "OutOfStock", want: "OutOfStock"},
		{input: "https://schema.org/LimitedAvailability/", want: "LimitedAvailability"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := NormalizeAvailability(tt.input); got != tt.want {
			t.Fatalf("NormalizeAvailability(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML("<p>Sturdy <b>steel</b> frame.</p><p>Ships flat.</p>")
	want := "Sturdy steel frame.Ships flat."
	if got != want {
		t.Fatalf("StripHTML = %q, want %q", got, want)
	}
	if StripHTML("  ") != "" {
		t.Fatalf("whitespace input should strip to empty")
	}
}

func TestParseIntAndFloat(t *testing.T) {
	if v, ok := ParseFloat("4.5"); !ok || v != 4.5 {
		t.Fatalf("ParseFloat(4.5) = (%v, %v)", v, ok)
	}
	if _, ok := ParseFloat("NaN"); ok {
		t.Fatalf("NaN must be rejected")
	}
	if v, ok := ParseInt("1,204 reviews"); !ok || v != 1204 {
		t.Fatalf("ParseInt = (%d, %v)", v, ok)
	}
	if _, ok := ParseInt("-3"); ok {
		t.Fatalf("negative counts must be rejected")
	}
}
