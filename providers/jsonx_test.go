package providers

import (
	"errors"
	"testing"

	moderation "github.com/heibot/moderation"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "bare object",
			raw:    `{"approved": true}`,
			want:   `{"approved": true}`,
			wantOK: true,
		},
		{
			name:   "fenced with language",
			raw:    "```json\n{\"approved\": false}\n```",
			want:   `{"approved": false}`,
			wantOK: true,
		},
		{
			name:   "prose around object",
			raw:    "Sure! Here is the review:\n{\"a\": {\"b\": 1}}\nHope it helps.",
			want:   `{"a": {"b": 1}}`,
			wantOK: true,
		},
		{
			name:   "no braces",
			raw:    "I cannot help with that.",
			wantOK: false,
		},
		{
			name:   "reversed braces",
			raw:    "} nope {",
			wantOK: false,
		},
		{
			name:   "empty",
			raw:    "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ExtractJSON() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Verdict string `json:"verdict"`
	}

	if err := DecodeJSON("```\n{\"verdict\":\"supported\"}\n```", &out); err != nil {
		t.Fatalf("DecodeJSON() error = %v", err)
	}
	if out.Verdict != "supported" {
		t.Errorf("Verdict = %q, want supported", out.Verdict)
	}

	err := DecodeJSON("{not json}", &out)
	if !errors.Is(err, moderation.ErrMalformedResponse) {
		t.Errorf("DecodeJSON() error = %v, want ErrMalformedResponse", err)
	}

	err = DecodeJSON("plain text", &out)
	if !errors.Is(err, moderation.ErrMalformedResponse) {
		t.Errorf("DecodeJSON() error = %v, want ErrMalformedResponse", err)
	}
}

func TestCategoryScores_Top(t *testing.T) {
	tests := []struct {
		name      string
		scores    CategoryScores
		wantName  string
		wantScore float64
	}{
		{"empty", CategoryScores{}, "", 0},
		{"single", CategoryScores{"Toxic": 0.3}, "Toxic", 0.3},
		{"max wins", CategoryScores{"Insult": 0.2, "Toxic": 0.9, "Profanity": 0.5}, "Toxic", 0.9},
		{"tie alphabetical", CategoryScores{"b": 0.5, "a": 0.5}, "a", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, score := tt.scores.Top()
			if name != tt.wantName || score != tt.wantScore {
				t.Errorf("Top() = (%q, %v), want (%q, %v)", name, score, tt.wantName, tt.wantScore)
			}
		})
	}
}

func TestSentimentLabel_Normalized(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"POSITIVE", LabelPositive},
		{"negative", LabelNegative},
		{"LABEL_0", LabelNegative},
		{"LABEL_1", LabelNeutral},
		{"LABEL_2", LabelPositive},
		{"mixed", LabelNeutral},
	}

	for _, tt := range tests {
		if got := (SentimentLabel{Label: tt.label}).Normalized(); got != tt.want {
			t.Errorf("Normalized(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}
